package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildRootCmdWith constructs the command wired to fnRun.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "voxlaunch",
		Short: "Set up and run the Chatterbox TTS server",
		Long: "voxlaunch prepares a Python environment for the Chatterbox TTS server,\n" +
			"installs the dependencies for your hardware, then starts the server and\n" +
			"keeps it running until you press Ctrl+C.",
		Example: "  voxlaunch\n" +
			"  voxlaunch --nvidia\n" +
			"  voxlaunch --reinstall --portable\n" +
			"  voxlaunch --upgrade --verbose",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnRun(cmd.Context(), cfg)
		},
	}

	f := root.Flags()
	f.BoolVarP(&cfg.Reinstall, "reinstall", "r", false, "Remove existing environments and install from scratch")
	f.BoolVarP(&cfg.Upgrade, "upgrade", "u", false, "Reinstall dependencies, keeping the current hardware selection")
	f.BoolVar(&cfg.CPU, "cpu", false, "Install for CPU only")
	f.BoolVar(&cfg.NVIDIA, "nvidia", false, "Install for NVIDIA GPUs (CUDA 12.1)")
	f.BoolVar(&cfg.NVIDIACU128, "nvidia-cu128", false, "Install for NVIDIA RTX 50 series / Blackwell (CUDA 12.8)")
	f.BoolVar(&cfg.ROCm, "rocm", false, "Install for AMD GPUs (ROCm 6.4, Linux only)")
	f.BoolVar(&cfg.Portable, "portable", false, "Use a portable Python inside the project folder (Windows only)")
	f.BoolVar(&cfg.NoPortable, "no-portable", false, "Use the system Python with a virtual environment")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show the output of every command")
	f.StringVar(&cfg.Root, "root", cfg.Root, "Project directory (defaults to the directory of the executable)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error (defaults VOXLAUNCH_LOG_LEVEL or warn)")
	f.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write run metrics to this file in Prometheus text format")

	root.MarkFlagsMutuallyExclusive("reinstall", "upgrade")
	root.MarkFlagsMutuallyExclusive("cpu", "nvidia", "nvidia-cu128", "rocm")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the launcher version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "voxlaunch "+Version)
		},
	})
	return root
}
