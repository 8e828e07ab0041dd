package memdom

// Prompter answers every confirmation with Answer and records what was
// shown.
type Prompter struct {
	Answer   bool
	Confirms []string
	Alerts   []string
}

func (p *Prompter) Confirm(message string) (bool, error) {
	p.Confirms = append(p.Confirms, message)
	return p.Answer, nil
}

func (p *Prompter) Alert(message string) error {
	p.Alerts = append(p.Alerts, message)
	return nil
}
