package hardware

import (
	"context"
	"fmt"

	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

var descriptions = map[types.Profile]string{
	types.ProfileCPU:         "No GPU acceleration, works on any system",
	types.ProfileNVIDIA:      "Standard for RTX 20/30/40 series",
	types.ProfileNVIDIACU128: "For RTX 5090 / Blackwell GPUs only",
	types.ProfileROCm:        "For AMD GPUs on Linux",
}

// Menu shows the detection summary and the four profiles, and returns the
// operator's choice. Empty input picks def.
func Menu(ctx context.Context, p termui.Prompter, c *termui.Console, r Report, def types.Profile, goos string) (types.Profile, error) {
	c.Banner("Hardware Detection")
	printDetection(c, "NVIDIA GPU", r.NVIDIA)
	printDetection(c, "AMD GPU", r.AMD)

	c.Banner("Select Installation Type")
	options := make([]string, len(types.Profiles))
	defIdx := 1
	for i, prof := range types.Profiles {
		opt := fmt.Sprintf("%s\n       %s", prof.DisplayName(), descriptions[prof])
		if prof == types.ProfileROCm && goos == "windows" {
			opt += " (not supported on Windows)"
		}
		options[i] = opt
		if prof == def {
			defIdx = i + 1
		}
	}
	n, err := termui.Choose(ctx, p, c, options, defIdx)
	if err != nil {
		return "", err
	}
	return types.Profiles[n-1], nil
}

func printDetection(c *termui.Console, label string, d Detection) {
	if d.Found {
		c.Success("   %-11s Detected (%s)", label+":", d.Name)
		return
	}
	c.Println("   %-11s Not detected", label+":")
}

// ConfirmUnsupported asks before installing ROCm on Windows, where it does not
// work. It returns false when the operator declines.
func ConfirmUnsupported(ctx context.Context, p termui.Prompter, c *termui.Console, prof types.Profile, goos string) (bool, error) {
	if prof != types.ProfileROCm || goos != "windows" {
		return true, nil
	}
	c.Warning("   ROCm is not supported on Windows; PyTorch ROCm builds are Linux only.")
	return termui.Confirm(ctx, p, "   Continue anyway?", false)
}
