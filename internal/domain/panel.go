package domain

// Panel is one rendered section of the dashboard.
type Panel struct {
	Source    SourceID
	Title     string
	Primary   string
	Secondary string
	Degraded  bool
}
