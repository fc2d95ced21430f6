// Package supervisor launches the payload server and owns it until it exits.
// It is structured into small files by concern:
//
//   - state.go: lifecycle states, budgets and the transition log.
//   - supervisor.go: Launch, AwaitReady, Monitor and Shutdown.
//   - ports.go: TCP probes used for readiness and the port-in-use preflight.
//   - terminate_*.go: graceful termination per platform.
//
// Every transition carries the time budget of the state it enters; exceeding a
// budget moves the payload to FailedToStart or to a forced kill.
package supervisor
