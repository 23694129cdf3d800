package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

type entry struct {
	Level   string         `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

var out io.Writer = os.Stdout

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) { out = w }

func Log(level, msg string, fields map[string]any) {
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Message: msg, Fields: fields}
	b, _ := json.Marshal(e)
	fmt.Fprintln(out, string(b))
}

func Info(msg string, fields map[string]any)  { Log("info", msg, fields) }
func Warn(msg string, fields map[string]any)  { Log("warn", msg, fields) }
func Error(msg string, fields map[string]any) { Log("error", msg, fields) }
