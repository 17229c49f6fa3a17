package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"

	"nathanbeddoewebdev/actionmgr/internal/catalog"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("aborted by user")

// ActionLister lists the catalog actions.
type ActionLister interface {
	List(ctx context.Context) ([]catalog.Summary, error)
}

// PickAction lets the user choose a catalog action and returns its id.
func PickAction(ctx context.Context, lister ActionLister) (int64, error) {
	accessible := os.Getenv("ACCESSIBLE") != ""

	var list []catalog.Summary
	fetchErr := spinner.New().
		Title("Reading catalog...").
		Accessible(accessible).
		Output(os.Stderr).
		ActionWithErr(func(ctx context.Context) error {
			var err error
			list, err = lister.List(ctx)
			return err
		}).
		Run()
	if fetchErr != nil {
		if errors.Is(fetchErr, huh.ErrUserAborted) || errors.Is(fetchErr, context.Canceled) {
			return 0, ErrAborted
		}
		return 0, fetchErr
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("the catalog is empty: import a bundle first")
	}

	options := make([]huh.Option[int64], len(list))
	for i, a := range list {
		label := fmt.Sprintf("%s  (%s)", a.Name, a.Kind)
		if a.XMLID != "" {
			label = fmt.Sprintf("%s  (%s, %s)", a.Name, a.Kind, a.XMLID)
		}
		options[i] = huh.NewOption(label, a.ID)
	}

	var selected int64
	selectField := huh.NewSelect[int64]().
		Title("Select an action").
		Options(options...).
		Value(&selected).
		Height(min(max(len(options), 5), 12))

	if err := runForm(accessible, huh.NewGroup(selectField)); err != nil {
		return 0, err
	}
	return selected, nil
}

func runForm(accessible bool, groups ...*huh.Group) error {
	err := huh.NewForm(groups...).WithAccessible(accessible).Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}
