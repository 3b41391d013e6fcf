package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/lavkush9051/attendance-app/api"
	"github.com/lavkush9051/attendance-app/employee"
	"github.com/lavkush9051/attendance-app/generic"
	"github.com/lavkush9051/attendance-app/generic/store"
	"github.com/lavkush9051/attendance-app/leave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScenarioStore struct {
	employees map[generic.EntityID]employee.Employee
	holidays  map[string]string
}

func newFakeScenarioStore() *fakeScenarioStore {
	return &fakeScenarioStore{
		employees: make(map[generic.EntityID]employee.Employee),
		holidays:  make(map[string]string),
	}
}

func (f *fakeScenarioStore) SaveEmployee(_ context.Context, e employee.Employee) error {
	f.employees[e.ID] = e
	return nil
}

func (f *fakeScenarioStore) SaveHoliday(_ context.Context, d generic.TimePoint, name string) error {
	f.holidays[d.String()] = name
	return nil
}

func TestLoadScenario_SmallTeam(t *testing.T) {
	// GIVEN: An empty store and ledger
	ctx := context.Background()
	st := newFakeScenarioStore()
	mem := store.NewMemory()
	ledger := generic.NewBalanceLedger(mem, generic.FixedClock{T: time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)})

	// WHEN: Loading the scenario twice
	require.NoError(t, api.LoadScenario(ctx, "small-team", st, ledger))
	first, err := mem.LoadByEntity(ctx, 1001)
	require.NoError(t, err)
	require.NoError(t, api.LoadScenario(ctx, "small-team", st, ledger))

	// THEN: Employees, holidays and balances exist, and the reload appended nothing
	assert.Len(t, st.employees, 4)
	assert.True(t, st.employees[1004].IsAdmin())
	assert.Equal(t, "Independence Day", st.holidays["2025-08-15"])

	second, err := mem.LoadByEntity(ctx, 1001)
	require.NoError(t, err)
	assert.Len(t, second, len(first))

	bal, err := ledger.Balance(ctx, generic.BalanceKey{EntityID: 1001, Resource: leave.TypeEarned})
	require.NoError(t, err)
	assert.True(t, bal.Accrued.Equal(generic.Days(30)))

	bal, err = ledger.Balance(ctx, generic.BalanceKey{EntityID: 1001, Resource: leave.TypeCommuted})
	require.NoError(t, err)
	assert.True(t, bal.Accrued.IsZero())
}

func TestLoadScenario_NightShiftAndUnknown(t *testing.T) {
	ctx := context.Background()
	st := newFakeScenarioStore()
	ledger := generic.NewBalanceLedger(store.NewMemory(), generic.SystemClock{})

	require.NoError(t, api.LoadScenario(ctx, "night-shift", st, ledger))
	assert.Len(t, st.employees, 5)
	assert.Equal(t, time.Sunday, st.employees[1005].WeekOffDay)

	err := api.LoadScenario(ctx, "nope", st, ledger)
	assert.ErrorIs(t, err, generic.ErrValidation)
	assert.Len(t, api.Scenarios(), 2)
}
