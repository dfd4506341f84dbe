package tracking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealsuite/modtrack/internal/models"
)

var allStatuses = []models.ModuleStatus{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusCompleted,
}

func TestApply_DirectAssignmentAnyDirection(t *testing.T) {
	// No forward-only rule: every internal transition, backward included,
	// is legal as long as it does not leave the client field ahead.
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			inst := models.ModuleInstance{Name: "Design", InternalStatus: from, ClientStatus: models.StatusPending}
			got, err := Apply(inst, models.FieldInternal, to)
			require.NoError(t, err, "internal %s -> %s", from, to)
			assert.Equal(t, to, got.InternalStatus)
		}
	}
}

func TestApply_RejectsClientAheadOfInternal(t *testing.T) {
	for _, internal := range []models.ModuleStatus{models.StatusPending, models.StatusInProgress} {
		inst := models.ModuleInstance{Name: "Build", InternalStatus: internal, ClientStatus: models.StatusPending}
		got, err := Apply(inst, models.FieldClient, models.StatusCompleted)
		assert.ErrorIs(t, err, ErrStatusOrder)
		assert.Equal(t, inst, got, "rejected mutation must not change the instance")
	}
}

func TestApply_RejectsReopeningUnderPublishedClient(t *testing.T) {
	// Reverting internal work while the client still sees it completed
	// would leave the client ahead; the admin has to unpublish first.
	inst := models.ModuleInstance{Name: "QA", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusCompleted}
	got, err := Apply(inst, models.FieldInternal, models.StatusInProgress)
	assert.ErrorIs(t, err, ErrStatusOrder)
	assert.Equal(t, inst, got)
}

func TestApply_UnknownStatusAndField(t *testing.T) {
	inst := models.ModuleInstance{Name: "QA", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending}

	_, err := Apply(inst, models.FieldInternal, models.ModuleStatus("done"))
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = Apply(inst, models.StatusField("visible"), models.StatusPending)
	assert.ErrorIs(t, err, ErrUnknownField)
}

// TestPublicationInvariant_Exhaustive attempts every (internal, client)
// starting pair and every (role, field, value) mutation and asserts that
// no accepted mutation ever produces client=completed with an incomplete
// internal status.
func TestPublicationInvariant_Exhaustive(t *testing.T) {
	roles := []models.Role{models.RoleAdmin, models.RoleEmployee, models.Role("viewer")}
	fields := []models.StatusField{models.FieldInternal, models.FieldClient}

	for _, internal := range allStatuses {
		for _, client := range allStatuses {
			if client == models.StatusCompleted && internal != models.StatusCompleted {
				continue // unreachable starting state
			}
			start := models.ModuleInstance{Name: "Design", InternalStatus: internal, ClientStatus: client}

			for _, role := range roles {
				for _, field := range fields {
					for _, value := range allStatuses {
						name := fmt.Sprintf("%s/%s/%s->%s_%s", role, field, internal, client, value)
						t.Run(name, func(t *testing.T) {
							if !CanMutate(role, field, start) {
								return // policy refuses before the state machine is reached
							}
							got, err := Apply(start, field, value)
							if err != nil {
								assert.Equal(t, start, got)
								return
							}
							if got.ClientStatus == models.StatusCompleted {
								assert.Equal(t, models.StatusCompleted, got.InternalStatus)
							}
						})
					}
				}
			}
		}
	}
}

func TestCheckModules(t *testing.T) {
	tests := []struct {
		name    string
		modules []models.ModuleInstance
		wantErr error
	}{
		{
			name: "legal list",
			modules: []models.ModuleInstance{
				{Name: "Design", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusCompleted},
				{Name: "Build", InternalStatus: models.StatusInProgress, ClientStatus: models.StatusPending},
			},
		},
		{
			name: "client ahead of internal",
			modules: []models.ModuleInstance{
				{Name: "Build", InternalStatus: models.StatusPending, ClientStatus: models.StatusCompleted},
			},
			wantErr: ErrStatusOrder,
		},
		{
			name: "duplicate names collide case-insensitively",
			modules: []models.ModuleInstance{
				{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
				{Name: " DESIGN", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
			},
			wantErr: ErrDuplicateModule,
		},
		{
			name: "empty name",
			modules: []models.ModuleInstance{
				{Name: "  ", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending},
			},
			wantErr: ErrInvalidModule,
		},
		{
			name: "unknown status",
			modules: []models.ModuleInstance{
				{Name: "Design", InternalStatus: models.ModuleStatus("blocked"), ClientStatus: models.StatusPending},
			},
			wantErr: ErrUnknownStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckModules(tt.modules)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPolicy_InternalField(t *testing.T) {
	inst := models.ModuleInstance{Name: "Design", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending}

	assert.True(t, CanMutate(models.RoleEmployee, models.FieldInternal, inst))
	assert.False(t, CanMutate(models.RoleAdmin, models.FieldInternal, inst), "admin views internal status read-only")
	assert.False(t, CanMutate(models.Role("viewer"), models.FieldInternal, inst))
}

func TestPolicy_ClientFieldRequiresInternalCompletion(t *testing.T) {
	pending := models.ModuleInstance{Name: "Build", InternalStatus: models.StatusPending, ClientStatus: models.StatusPending}
	done := models.ModuleInstance{Name: "Build", InternalStatus: models.StatusCompleted, ClientStatus: models.StatusPending}

	assert.False(t, CanMutate(models.RoleAdmin, models.FieldClient, pending), "finish internal work first")
	assert.True(t, CanMutate(models.RoleAdmin, models.FieldClient, done))
	assert.False(t, CanMutate(models.RoleEmployee, models.FieldClient, done))
	assert.False(t, CanMutate(models.Role(""), models.FieldClient, done))

	assert.True(t, CanPublish(models.RoleAdmin, done))
	assert.False(t, CanPublish(models.RoleAdmin, pending))
}
