package reader

import (
	"path/filepath"
	"time"

	"github.com/oicur0t/hal/internal/param"
)

// DateLayout names the daily log subfolders and files, e.g. 23-01-12
const DateLayout = "06-01-02"

// DateString formats t the way the instrument software names its folders
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// Locate returns the log file holding p's values on date.
// The file prefix is used verbatim, trailing spaces included.
func Locate(root string, p param.Parameter, date string) string {
	return filepath.Join(root, date, p.FilePrefix+date+".log")
}
