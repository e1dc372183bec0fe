package logger

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = []string{
	"DEBUG",
	"INFO",
	"WARN",
	"ERROR",
}

// String returns the string representation of a logging level.
func (p Level) String() string {
	if p < DEBUG || int(p) >= len(levelNames) {
		return "NONE"
	}
	return levelNames[p]
}
