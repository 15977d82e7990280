package errhandler

import (
	"errors"
	"strings"
	"unicode"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/pterm/pterm"

	"github.com/Iamcalix/quickbooksupload/internal/store"
)

// Cancelled reports whether err comes from an interrupted prompt
func Cancelled(err error) bool {
	return errors.Is(err, terminal.InterruptErr) || strings.Contains(err.Error(), "interrupt")
}

// Message turns err into the line shown to the user
func Message(err error) string {
	switch {
	case errors.Is(err, store.ErrBatchNotFound):
		return "Batch not found"
	case errors.Is(err, store.ErrEmptyName):
		return "Batch name must not be empty"
	}
	return capitalize(err.Error())
}

// HandleError prints err and returns the process exit code
func HandleError(err error) int {
	if err == nil {
		return 0
	}
	if Cancelled(err) {
		pterm.Warning.Println("Operation Cancelled")
		return 0
	}
	pterm.Error.Println(Message(err))
	return 1
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
