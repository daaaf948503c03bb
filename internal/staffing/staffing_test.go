package staffing

import (
	"reflect"
	"testing"

	"simbook/pkg/model"
)

func TestCanConfirm(t *testing.T) {
	tests := []struct {
		name        string
		session     *model.Session
		wantConfirm bool
		wantReasons []string
	}{
		{
			name: "fully staffed pending session",
			session: &model.Session{
				Status:              model.StatusPendingConfirmation,
				SetupIDs:            []string{"setup-1"},
				MinOperators:        1,
				AcceptedOperatorIDs: []string{"op-1"},
			},
			wantConfirm: true,
			wantReasons: []string{},
		},
		{
			name: "no operator accepted",
			session: &model.Session{
				Status:       model.StatusPendingConfirmation,
				SetupIDs:     []string{"setup-1"},
				MinOperators: 1,
			},
			wantConfirm: false,
			wantReasons: []string{ReasonNoOperatorAssigned},
		},
		{
			name: "understaffed below minimum",
			session: &model.Session{
				Status:              model.StatusPendingConfirmation,
				SetupIDs:            []string{"setup-1"},
				MinOperators:        2,
				AcceptedOperatorIDs: []string{"op-1"},
			},
			wantConfirm: false,
			wantReasons: []string{ReasonNoOperatorAssigned},
		},
		{
			name: "min operators defaults to one",
			session: &model.Session{
				Status:              model.StatusPendingConfirmation,
				SetupIDs:            []string{"setup-1"},
				AcceptedOperatorIDs: []string{"op-1"},
			},
			wantConfirm: true,
			wantReasons: []string{},
		},
		{
			name: "no setup assigned",
			session: &model.Session{
				Status:              model.StatusPendingConfirmation,
				MinOperators:        1,
				AcceptedOperatorIDs: []string{"op-1"},
			},
			wantConfirm: false,
			wantReasons: []string{ReasonNoSetupAssigned},
		},
		{
			name: "already confirmed",
			session: &model.Session{
				Status:              model.StatusConfirmed,
				SetupIDs:            []string{"setup-1"},
				MinOperators:        1,
				AcceptedOperatorIDs: []string{"op-1"},
			},
			wantConfirm: false,
			wantReasons: []string{ReasonInvalidStatus},
		},
		{
			name:        "everything wrong at once",
			session:     &model.Session{Status: model.StatusCancelled, MinOperators: 2},
			wantConfirm: false,
			wantReasons: []string{ReasonInvalidStatus, ReasonNoSetupAssigned, ReasonNoOperatorAssigned},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanConfirm(tt.session)
			if result.CanConfirm != tt.wantConfirm {
				t.Errorf("CanConfirm = %v, want %v", result.CanConfirm, tt.wantConfirm)
			}
			if !reflect.DeepEqual(result.Reasons, tt.wantReasons) {
				t.Errorf("Reasons = %v, want %v", result.Reasons, tt.wantReasons)
			}
		})
	}
}

func TestCanConfirm_PendingApplicationsDoNotStaff(t *testing.T) {
	// Pending marketplace applications never count toward staffing; the
	// session model only carries operators whose applications were accepted.
	s := &model.Session{
		Status:       model.StatusPendingConfirmation,
		SetupIDs:     []string{"setup-1"},
		MinOperators: 1,
	}

	result := CanConfirm(s)
	if result.CanConfirm {
		t.Error("expected confirmation to be blocked without accepted operators")
	}
	if result.AssignedOperators != 0 {
		t.Errorf("expected 0 assigned operators, got %d", result.AssignedOperators)
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != ReasonNoOperatorAssigned {
		t.Errorf("expected [NO_OPERATOR_ASSIGNED], got %v", result.Reasons)
	}
}
