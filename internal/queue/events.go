package queue

// MailRequested asks the notify worker to deliver one email.
type MailRequested struct {
	FromName string `json:"from_name"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
}
