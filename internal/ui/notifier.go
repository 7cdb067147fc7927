package ui

// Notifier delivers shuffle notifications to the TUI status line.
//
// Notify never blocks: when the buffer is full the message is dropped.
type Notifier struct {
	ch chan string
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan string, 8)}
}

func (n *Notifier) Notify(msg string) {
	select {
	case n.ch <- msg:
	default:
	}
}

// Notices returns the channel the model reads notifications from.
func (n *Notifier) Notices() <-chan string {
	return n.ch
}
