package console

/*
Status console for the monitor. Other parts of the program log short
status messages here through a string channel; the console takes care of
displaying them, either in a gocui view or on plain stdout.
*/

// Console is implemented by the gui and simple variants.
type Console interface {
	WriteConsole(msg string) error
}
