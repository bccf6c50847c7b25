package model

// TerminalValidation contains the result of key+device validation.
type TerminalValidation struct {
	AccountID   int64
	KeyID       int64
	AccountName string
	DeviceID    string
	KeyStatus   string
}
