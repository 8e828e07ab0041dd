package rodom

import (
	"fmt"

	"github.com/go-rod/rod"
)

// Prompter shows the page's own confirm and alert dialogs. Both block
// until the operator answers.
type Prompter struct {
	Page *rod.Page
}

func (p Prompter) Confirm(message string) (bool, error) {
	res, err := p.Page.Eval(`(m) => window.confirm(m)`, message)
	if err != nil {
		return false, fmt.Errorf("rodom: confirm: %w", err)
	}
	return res.Value.Bool(), nil
}

func (p Prompter) Alert(message string) error {
	if _, err := p.Page.Eval(`(m) => window.alert(m)`, message); err != nil {
		return fmt.Errorf("rodom: alert: %w", err)
	}
	return nil
}
