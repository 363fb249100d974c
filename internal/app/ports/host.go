package ports

// HostEnvironment exposes the launch credentials handed to the mini-app by the
// Telegram client. ok is false until the host has provided initData.
type HostEnvironment interface {
	LaunchParams() (initData, ref string, ok bool)
}
