package tui

// ProgressMsg advances the progress display.
type ProgressMsg struct {
	Percent int
	Step    string
}

// DoneMsg ends the program after successful work.
type DoneMsg struct {
	Detail string
}

// ErrorMsg ends the program with a failure.
type ErrorMsg struct {
	Err error
}
