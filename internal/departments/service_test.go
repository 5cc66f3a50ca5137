package departments

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type memoryRepo struct {
	departments map[string]*Department
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{departments: map[string]*Department{}}
}

func (m *memoryRepo) tenantMatch(tenant shared.Tenant, d *Department) bool {
	return tenant.All() || d.CompCode == tenant.Code()
}

func (m *memoryRepo) Insert(_ context.Context, tenant shared.Tenant, dept Department) (*Department, error) {
	if tenant.All() || tenant.IsZero() {
		return nil, shared.ErrTenantRequired
	}
	for _, existing := range m.departments {
		if existing.CompCode == tenant.Code() && existing.Name == dept.Name {
			return nil, ErrNameTaken
		}
	}
	dept.CompCode = tenant.Code()
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = time.Now()
	m.departments[dept.ID] = &dept
	return &dept, nil
}

func (m *memoryRepo) GetByID(_ context.Context, tenant shared.Tenant, id string) (*Department, error) {
	d, ok := m.departments[id]
	if !ok || !m.tenantMatch(tenant, d) {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *memoryRepo) List(_ context.Context, tenant shared.Tenant, status string) ([]Department, error) {
	var out []Department
	for _, d := range m.departments {
		if !m.tenantMatch(tenant, d) {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, tenant shared.Tenant, id string, update DepartmentUpdate) (*Department, error) {
	d, ok := m.departments[id]
	if !ok || !m.tenantMatch(tenant, d) {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		d.Name = *update.Name
	}
	if update.Description != nil {
		d.Description = *update.Description
	}
	if update.Status != nil {
		d.Status = *update.Status
	}
	d.UpdatedAt = time.Now()
	return d, nil
}

func (m *memoryRepo) Delete(_ context.Context, tenant shared.Tenant, id string) (*Department, error) {
	d, ok := m.departments[id]
	if !ok || !m.tenantMatch(tenant, d) {
		return nil, ErrNotFound
	}
	delete(m.departments, id)
	return d, nil
}

func (m *memoryRepo) CompanyOf(_ context.Context, id string) (string, error) {
	d, ok := m.departments[id]
	if !ok {
		return "", ErrNotFound
	}
	return d.CompCode, nil
}

func strp(s string) *string { return &s }

func TestCreateDefaultsActive(t *testing.T) {
	svc := NewService(newMemoryRepo())

	dept, err := svc.Create(context.Background(), shared.TenantFor("ACME"), CreateInput{Name: "  Engineering "})
	require.NoError(t, err)
	require.Equal(t, "Engineering", dept.Name)
	require.Equal(t, StatusActive, dept.Status)
	require.Equal(t, "ACME", dept.CompCode)
	require.NotEmpty(t, dept.ID)
}

func TestCreateRequiresConcreteCompany(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), shared.AllTenants(), CreateInput{Name: "Ops"})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestListSortsByNameAndFiltersStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	tenant := shared.TenantFor("ACME")

	for _, name := range []string{"Sales", "Engineering", "Ops"} {
		_, err := svc.Create(ctx, tenant, CreateInput{Name: name})
		require.NoError(t, err)
	}
	sales, err := svc.List(ctx, tenant, "")
	require.NoError(t, err)
	require.Equal(t, []string{"Engineering", "Ops", "Sales"}, []string{sales[0].Name, sales[1].Name, sales[2].Name})

	_, err = svc.UpdateStatus(ctx, tenant, sales[2].ID, StatusInactive)
	require.NoError(t, err)

	active, err := svc.List(ctx, tenant, StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 2)

	_, err = svc.List(ctx, tenant, "archived")
	require.ErrorIs(t, err, ErrBadStatus)
}

func TestListIsCompanyScoped(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, shared.TenantFor("ACME"), CreateInput{Name: "Engineering"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, shared.TenantFor("GLOBEX"), CreateInput{Name: "Logistics"})
	require.NoError(t, err)

	acme, err := svc.List(ctx, shared.TenantFor("ACME"), "")
	require.NoError(t, err)
	require.Len(t, acme, 1)
	require.Equal(t, "Engineering", acme[0].Name)

	// The elevated role without a company filter sees everything.
	all, err := svc.List(ctx, shared.AllTenants(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateStatusValidatesValue(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	tenant := shared.TenantFor("ACME")

	dept, err := svc.Create(ctx, tenant, CreateInput{Name: "Engineering"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, tenant, dept.ID, "paused")
	require.ErrorIs(t, err, ErrBadStatus)

	updated, err := svc.UpdateStatus(ctx, tenant, dept.ID, StatusInactive)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, updated.Status)
}

func TestUpdateTrimsName(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	tenant := shared.TenantFor("ACME")

	dept, err := svc.Create(ctx, tenant, CreateInput{Name: "Engineering"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, tenant, dept.ID, DepartmentUpdate{Name: strp("  Platform ")})
	require.NoError(t, err)
	require.Equal(t, "Platform", updated.Name)
}

func TestDeleteRespectsTenantBoundary(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	dept, err := svc.Create(ctx, shared.TenantFor("ACME"), CreateInput{Name: "Engineering"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, shared.TenantFor("GLOBEX"), dept.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(ctx, shared.TenantFor("ACME"), dept.ID)
	require.NoError(t, err)
}
