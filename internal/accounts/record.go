package accounts

import (
	"encoding/json"
	"fmt"
	"time"
)

// record is the persisted shape. Email and Password hold codec text, never
// plaintext. Keys are PascalCase to stay readable by older clients.
type record struct {
	Email       string    `json:"Email"`
	Password    string    `json:"Password"`
	AccountName string    `json:"AccountName"`
	LastUsed    timestamp `json:"LastUsed"`
}

// Account is the decoded view of a saved login.
type Account struct {
	Email       string
	Password    string
	AccountName string
	LastUsed    time.Time
}

// zonelessLayout matches timestamps written without an offset by older
// clients; they are read in local time.
const zonelessLayout = "2006-01-02T15:04:05.9999999"

type timestamp struct {
	time.Time
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(zonelessLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	t.Time = v
	return nil
}
