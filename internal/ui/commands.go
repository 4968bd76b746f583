package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/larder/internal/device"
	"github.com/five82/larder/internal/extraction"
	"github.com/five82/larder/internal/gallery"
	"github.com/five82/larder/internal/logtail"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/settings"
)

// Messages

type tickMsg time.Time

// Store observer messages, posted by Run.
type (
	jobMsg       extraction.Job
	cardsMsg     gallery.Snapshot
	favoritesMsg []string
	identityMsg  device.Identity
	consentMsg   bool
)

type submitDoneMsg struct {
	job extraction.Job
	err error
}

type resultsMsg struct {
	jobID string
	err   error
}

type savedMsg struct {
	card recipeapi.Card
	err  error
}

type galleryOp int

const (
	opRefresh galleryOp = iota
	opLoadMore
	opDelete
)

type galleryOpMsg struct {
	op     galleryOp
	cardID string
	// Position of the deleted card in the favorites view and that view's
	// length before the delete.
	viewIndex int
	viewLen   int
	err       error
}

type swapsMsg struct {
	seq  int
	resp *recipeapi.SwapResponse
	err  error
}

type consentAcceptedMsg struct{ err error }

type restoreMsg struct {
	premium bool
	err     error
}

type logLinesMsg struct {
	lines []string
	err   error
}

type copiedMsg struct {
	items int
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// submitCmd starts an extraction. ctx outlives the request because it also
// bounds the polling loop.
func submitCmd(ctx context.Context, session *extraction.Session, link string) tea.Cmd {
	if session == nil {
		return nil
	}
	return func() tea.Msg {
		job, err := session.Submit(ctx, link)
		return submitDoneMsg{job: job, err: err}
	}
}

func fetchResultsCmd(ctx context.Context, session *extraction.Session, jobID string) tea.Cmd {
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		_, err := session.Results(reqCtx)
		return resultsMsg{jobID: jobID, err: err}
	}
}

// saveCmd saves results to the gallery. ctx also bounds the image back-fill
// the save may start, so it is not given a deadline.
func saveCmd(ctx context.Context, svc *gallery.Service, res *recipeapi.Results, sourceURL string) tea.Cmd {
	return func() tea.Msg {
		card, err := svc.Save(ctx, res, sourceURL)
		return savedMsg{card: card, err: err}
	}
}

func refreshGalleryCmd(ctx context.Context, svc *gallery.Service) tea.Cmd {
	return func() tea.Msg {
		return galleryOpMsg{op: opRefresh, err: svc.Refresh(ctx)}
	}
}

func loadMoreCmd(ctx context.Context, svc *gallery.Service) tea.Cmd {
	return func() tea.Msg {
		return galleryOpMsg{op: opLoadMore, err: svc.LoadMore(ctx)}
	}
}

func deleteCardCmd(ctx context.Context, svc *gallery.Service, cardID string, viewIndex, viewLen int) tea.Cmd {
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		err := svc.Delete(reqCtx, cardID)
		return galleryOpMsg{op: opDelete, cardID: cardID, viewIndex: viewIndex, viewLen: viewLen, err: err}
	}
}

func swapsCmd(ctx context.Context, api recipeapi.SwapAPI, req recipeapi.SwapRequest, seq int) tea.Cmd {
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		resp, err := api.SwapSuggestions(reqCtx, req)
		return swapsMsg{seq: seq, resp: resp, err: err}
	}
}

func acceptConsentCmd(ctx context.Context, consent *settings.Consent) tea.Cmd {
	return func() tea.Msg {
		return consentAcceptedMsg{err: consent.Accept(ctx)}
	}
}

// restoreCmd asks the backend for the device's entitlement and records the
// answer as a restored purchase.
func restoreCmd(ctx context.Context, registrar *device.Registrar, store *device.Store) tea.Cmd {
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		if err := registrar.Sync(reqCtx); err != nil {
			return restoreMsg{err: err}
		}
		restored := 0
		if store.IsPremium() {
			restored = 1
		}
		if err := store.ApplyPurchase(reqCtx, device.Restored(restored)); err != nil {
			return restoreMsg{err: err}
		}
		return restoreMsg{premium: restored > 0}
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func copyCmd(write func(string) error, text string, items int) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{items: items, err: write(text)}
	}
}
