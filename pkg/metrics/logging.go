package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

const redacted = "[redacted]"

// Field names that must never carry secret material out of the process.
var secretFieldMarkers = []string{"secret", "private", "password", "seed"}

// LogFormatter wraps another logrus.Formatter and forwards every entry,
// fields included, to New Relic. Fields whose names look like secrets are
// redacted from both outputs.
type LogFormatter struct {
	app       *newrelic.Application
	formatter logrus.Formatter
}

func NewLogFormatter(app *newrelic.Application, formatter logrus.Formatter) *LogFormatter {
	return &LogFormatter{
		app:       app,
		formatter: formatter,
	}
}

func (f *LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e = redactEntry(e)

	formatted, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(bytes.TrimRight(formatted, "\n"))

	if f.app == nil {
		b.WriteString("\n")
		return b.Bytes(), nil
	}

	logData := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(logData)
		err = newrelic.EnrichLog(b, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// forwardedMessage folds the entry's fields into the message, since New
// Relic's LogData has no structured attributes.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errorString := "<nil>"
	extra := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			if typed, ok := v.(error); ok {
				errorString = fmt.Sprintf("%q", typed.Error())
			}
			continue
		}
		extra[k] = v
	}

	encoded, err := json.Marshal(extra)
	if err != nil {
		return e.Message
	}
	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errorString, encoded)
}

func redactEntry(e *logrus.Entry) *logrus.Entry {
	var dirty bool
	for k := range e.Data {
		if isSecretField(k) {
			dirty = true
			break
		}
	}
	if !dirty {
		return e
	}

	clean := make(logrus.Fields, len(e.Data))
	for k, v := range e.Data {
		if isSecretField(k) {
			v = redacted
		}
		clean[k] = v
	}

	copied := *e
	copied.Data = clean
	return &copied
}

func isSecretField(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range secretFieldMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
