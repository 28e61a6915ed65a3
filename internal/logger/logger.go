package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type (
	Entry  = logrus.Entry
	Fields = logrus.Fields
)

// Init настраивает глобальный логгер: JSON в stdout, уровень из level.
// DEBUG=true в окружении принудительно включает debug.
func Init(level string) {
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	Log.SetOutput(os.Stdout)
	Log.SetLevel(ParseLevel(level))

	if os.Getenv("DEBUG") == "true" {
		Log.SetLevel(logrus.DebugLevel)
	}
}

// ParseLevel переводит строку в уровень logrus; неизвестные значения дают info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Silence отключает вывод; используется в тестах.
func Silence() {
	Log.SetOutput(io.Discard)
}
