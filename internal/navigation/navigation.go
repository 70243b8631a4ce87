// Package navigation models the client view hierarchy as an explicit state
// machine: the current view plus its account context, advanced by pure
// transitions over user actions and mutation outcomes. It holds no account
// data of its own; the current account is always re-resolved by id through
// the injected lookup.
package navigation

import (
	"encoding/json"
	"sync"

	"github.com/rongwang/bookkeeper-server/internal/colors"
	"github.com/rongwang/bookkeeper-server/internal/models"
)

// View identifies a screen of the client.
type View int

const (
	ViewList View = iota
	ViewSubAccounts
	ViewCreate
	ViewEdit
	ViewSettings
	ViewSettingsGeneral
	ViewSettingsBooks
	ViewSettingsAccounts
	ViewSettingsTransactions
	ViewSettingsBackup
	ViewSettingsAbout
)

var viewNames = map[View]string{
	ViewList:                 "list",
	ViewSubAccounts:          "sub-accounts",
	ViewCreate:               "create",
	ViewEdit:                 "edit",
	ViewSettings:             "settings",
	ViewSettingsGeneral:      "settings-general",
	ViewSettingsBooks:        "settings-books",
	ViewSettingsAccounts:     "settings-accounts",
	ViewSettingsTransactions: "settings-transactions",
	ViewSettingsBackup:       "settings-backup",
	ViewSettingsAbout:        "settings-about",
}

// settingsPages maps the page names dispatched by the settings screen to
// their views.
var settingsPages = map[string]View{
	"general":      ViewSettingsGeneral,
	"books":        ViewSettingsBooks,
	"accounts":     ViewSettingsAccounts,
	"transactions": ViewSettingsTransactions,
	"backup":       ViewSettingsBackup,
	"about":        ViewSettingsAbout,
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "list"
}

func (v View) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v View) isSettings() bool {
	return v >= ViewSettings && v <= ViewSettingsAbout
}

// State is the current view plus its account context. AccountID is the
// account being viewed or edited; ParentID is the target parent of a
// pending create.
type State struct {
	View      View   `json:"view"`
	AccountID string `json:"accountId,omitempty"`
	ParentID  string `json:"parentId,omitempty"`
}

// Initial returns the starting state: the top-level account list.
func Initial() State {
	return State{View: ViewList}
}

// Lookup resolves an account id, returning nil when absent.
type Lookup func(id string) *models.Account

// Event is a user action or mutation outcome driving a transition.
type Event interface {
	isEvent()
}

// SelectAccount drills into an account's sub-account view.
type SelectAccount struct {
	AccountID string
}

// Back returns to the enclosing view.
type Back struct{}

// AddAccount opens the create form; the parent is taken from the current
// view's context.
type AddAccount struct{}

// EditAccount opens the edit form for an existing account.
type EditAccount struct {
	AccountID string
}

// Saved reports a successful save from the create or edit form.
type Saved struct {
	AccountID string
}

// Deleted reports accounts removed by a (possibly cascading) delete.
type Deleted struct {
	AccountIDs []string
}

// OpenSettings enters the settings screen from the list.
type OpenSettings struct{}

// OpenSettingsPage enters a settings sub-page ("general", "books",
// "accounts", "transactions", "backup", "about").
type OpenSettingsPage struct {
	Page string
}

// CloseSettings leaves the settings screen back to the list.
type CloseSettings struct{}

func (SelectAccount) isEvent()    {}
func (Back) isEvent()             {}
func (AddAccount) isEvent()       {}
func (EditAccount) isEvent()      {}
func (Saved) isEvent()            {}
func (Deleted) isEvent()          {}
func (OpenSettings) isEvent()     {}
func (OpenSettingsPage) isEvent() {}
func (CloseSettings) isEvent()    {}

// Next computes the state after event. Unknown or inapplicable events leave
// the state unchanged; stale account references collapse to the list.
func Next(state State, event Event, lookup Lookup) State {
	switch e := event.(type) {
	case SelectAccount:
		if state.View != ViewList && state.View != ViewSubAccounts {
			return state
		}
		if lookup(e.AccountID) == nil {
			return state
		}
		return State{View: ViewSubAccounts, AccountID: e.AccountID}

	case Back:
		return back(state, lookup)

	case AddAccount:
		switch state.View {
		case ViewList:
			return State{View: ViewCreate}
		case ViewSubAccounts:
			return State{View: ViewCreate, ParentID: state.AccountID}
		}
		return state

	case EditAccount:
		if lookup(e.AccountID) == nil {
			return state
		}
		return State{View: ViewEdit, AccountID: e.AccountID}

	case Saved:
		if state.View != ViewCreate && state.View != ViewEdit {
			return state
		}
		saved := lookup(e.AccountID)
		if saved != nil && saved.ParentID != nil && lookup(*saved.ParentID) != nil {
			return State{View: ViewSubAccounts, AccountID: *saved.ParentID}
		}
		return State{View: ViewList}

	case Deleted:
		for _, id := range e.AccountIDs {
			if id == state.AccountID && state.AccountID != "" {
				// The viewing context no longer exists.
				return State{View: ViewList}
			}
			if id == state.ParentID && state.ParentID != "" {
				return State{View: ViewList}
			}
		}
		return state

	case OpenSettings:
		if state.View == ViewList {
			return State{View: ViewSettings}
		}
		return state

	case OpenSettingsPage:
		if state.View != ViewSettings {
			return state
		}
		if page, ok := settingsPages[e.Page]; ok {
			return State{View: page}
		}
		return state

	case CloseSettings:
		if state.View.isSettings() {
			return State{View: ViewList}
		}
		return state
	}

	return state
}

func back(state State, lookup Lookup) State {
	switch state.View {
	case ViewSubAccounts:
		current := lookup(state.AccountID)
		if current == nil || current.ParentID == nil {
			return State{View: ViewList}
		}
		if lookup(*current.ParentID) == nil {
			return State{View: ViewList}
		}
		return State{View: ViewSubAccounts, AccountID: *current.ParentID}

	case ViewCreate:
		if state.ParentID != "" && lookup(state.ParentID) != nil {
			return State{View: ViewSubAccounts, AccountID: state.ParentID}
		}
		return State{View: ViewList}

	case ViewEdit:
		account := lookup(state.AccountID)
		if account != nil && account.ParentID != nil && lookup(*account.ParentID) != nil {
			return State{View: ViewSubAccounts, AccountID: *account.ParentID}
		}
		return State{View: ViewList}

	case ViewSettings:
		return State{View: ViewList}

	case ViewSettingsGeneral, ViewSettingsBooks, ViewSettingsAccounts,
		ViewSettingsTransactions, ViewSettingsBackup, ViewSettingsAbout:
		return State{View: ViewSettings}
	}

	return State{View: ViewList}
}

// HeaderColor is the display color for the state's header: the top-level
// ancestor color of the current account context, or the fixed default when
// no account is in view.
func HeaderColor(state State, lookup Lookup) string {
	id := state.AccountID
	if id == "" {
		id = state.ParentID
	}
	if id == "" {
		return colors.DefaultHeader
	}
	account := lookup(id)
	if account == nil {
		return colors.DefaultHeader
	}
	return colors.TopLevel(account, lookup)
}

// Machine is a stateful wrapper over the pure transition function, holding
// the current state for one owner.
type Machine struct {
	mu     sync.Mutex
	state  State
	lookup Lookup
}

// NewMachine creates a Machine in the initial state.
func NewMachine(lookup Lookup) *Machine {
	return &Machine{state: Initial(), lookup: lookup}
}

// Current returns the present state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Dispatch advances the machine and returns the new state.
func (m *Machine) Dispatch(event Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Next(m.state, event, m.lookup)
	return m.state
}

// HeaderColor resolves the display color for the current state.
func (m *Machine) HeaderColor() string {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	return HeaderColor(state, m.lookup)
}
