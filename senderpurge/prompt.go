package senderpurge

import "log/slog"

// AutoConfirm accepts every confirmation and logs alerts instead of
// showing them. It is for unattended runs.
type AutoConfirm struct {
	Logger *slog.Logger
}

func (p AutoConfirm) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p AutoConfirm) Confirm(message string) (bool, error) {
	p.logger().Info("senderpurge: auto-confirmed", "prompt", message)
	return true, nil
}

func (p AutoConfirm) Alert(message string) error {
	p.logger().Warn("senderpurge: alert", "message", message)
	return nil
}
