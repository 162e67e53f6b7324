// Package version хранит метаданные сборки, заполняемые через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// Version возвращает только версию.
func Version() string { return version }

func String() string {
	return fmt.Sprintf("sap-relay version=%s commit=%s date=%s", version, commit, date)
}
