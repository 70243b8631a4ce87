package service

import (
	"context"
	"fmt"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/navigation"
)

// Navigation returns the user's current navigation state and header color.
func (s *DefaultService) Navigation(ctx context.Context, userID string) (navigation.State, string, error) {
	m := s.machineFor(userID)
	return m.Current(), m.HeaderColor(), nil
}

// DispatchNavigation advances the user's navigation machine by one action.
func (s *DefaultService) DispatchNavigation(ctx context.Context, userID string, req models.DispatchRequest) (navigation.State, string, error) {
	event, err := parseNavigationEvent(req)
	if err != nil {
		return navigation.State{}, "", err
	}

	m := s.machineFor(userID)
	state := m.Dispatch(event)
	return state, m.HeaderColor(), nil
}

// parseNavigationEvent maps a wire-level action to a machine event. Only
// user actions are dispatchable; mutation outcomes (save, delete) are fed to
// the machine by the account commands themselves.
func parseNavigationEvent(req models.DispatchRequest) (navigation.Event, error) {
	switch req.Action {
	case "select":
		if req.AccountID == "" {
			return nil, fmt.Errorf("select requires accountId")
		}
		return navigation.SelectAccount{AccountID: req.AccountID}, nil
	case "back":
		return navigation.Back{}, nil
	case "add":
		return navigation.AddAccount{}, nil
	case "edit":
		if req.AccountID == "" {
			return nil, fmt.Errorf("edit requires accountId")
		}
		return navigation.EditAccount{AccountID: req.AccountID}, nil
	case "open-settings":
		return navigation.OpenSettings{}, nil
	case "open-settings-page":
		if req.Page == "" {
			return nil, fmt.Errorf("open-settings-page requires page")
		}
		return navigation.OpenSettingsPage{Page: req.Page}, nil
	case "close-settings":
		return navigation.CloseSettings{}, nil
	default:
		return nil, fmt.Errorf("unknown navigation action %q", req.Action)
	}
}
