package service

import (
	"fmt"
	"time"

	"github.com/yourorg/staffdesk/internal/domain"
)

// In-memory repository fakes shared by the service tests.

type fakeUserRepo struct {
	seq      int
	users    map[string]*domain.User
	profiles map[string]*domain.Profile
	perms    map[string][]domain.Permission
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    map[string]*domain.User{},
		profiles: map[string]*domain.Profile{},
		perms:    map[string][]domain.Permission{},
	}
}

func (f *fakeUserRepo) Create(user *domain.User, profile *domain.Profile) error {
	for _, u := range f.users {
		if u.Email == user.Email && !u.Deleted() {
			return domain.ErrEmailAlreadyRegistered
		}
	}
	f.seq++
	user.ID = fmt.Sprintf("user-%d", f.seq)
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	p := *profile
	p.UserID = user.ID
	f.profiles[user.ID] = &p
	return nil
}

func (f *fakeUserRepo) GetByID(id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email && !u.Deleted() {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetProfile(userID string) (*domain.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return p, nil
}

func (f *fakeUserRepo) Update(user *domain.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateProfile(profile *domain.Profile) error {
	if _, ok := f.profiles[profile.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeUserRepo) SetGlobalRole(userID string, role domain.GlobalRole) error {
	p, ok := f.profiles[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	p.Role = role
	return nil
}

func (f *fakeUserRepo) SoftDelete(id string) error {
	u, ok := f.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (f *fakeUserRepo) List() ([]*domain.User, error) {
	out := []*domain.User{}
	for _, u := range f.users {
		if !u.Deleted() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListPermissions(userID string) ([]domain.Permission, error) {
	return f.perms[userID], nil
}

func (f *fakeUserRepo) GrantPermission(userID string, perm domain.Permission) error {
	f.perms[userID] = append(f.perms[userID], perm)
	return nil
}

type fakeBusinessRepo struct {
	seq         int
	businesses  map[string]*domain.Business
	memberships *fakeMembershipRepo
}

func newFakeBusinessRepo(memberships *fakeMembershipRepo) *fakeBusinessRepo {
	return &fakeBusinessRepo{businesses: map[string]*domain.Business{}, memberships: memberships}
}

func (f *fakeBusinessRepo) Create(b *domain.Business) error {
	for _, other := range f.businesses {
		if other.Slug == b.Slug {
			return domain.ErrConflict
		}
	}
	f.seq++
	b.ID = fmt.Sprintf("biz-%d", f.seq)
	b.CreatedAt = time.Now()
	f.businesses[b.ID] = b
	return nil
}

func (f *fakeBusinessRepo) GetByID(id string) (*domain.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, domain.ErrBusinessNotFound
	}
	return b, nil
}

func (f *fakeBusinessRepo) GetBySlug(slug string) (*domain.Business, error) {
	for _, b := range f.businesses {
		if b.Slug == slug {
			return b, nil
		}
	}
	return nil, domain.ErrBusinessNotFound
}

func (f *fakeBusinessRepo) Update(b *domain.Business) error {
	if _, ok := f.businesses[b.ID]; !ok {
		return domain.ErrBusinessNotFound
	}
	f.businesses[b.ID] = b
	return nil
}

func (f *fakeBusinessRepo) SoftDelete(id string) error {
	b, ok := f.businesses[id]
	if !ok {
		return domain.ErrBusinessNotFound
	}
	now := time.Now()
	b.DeletedAt = &now
	return nil
}

func (f *fakeBusinessRepo) Restore(id string) error {
	b, ok := f.businesses[id]
	if !ok {
		return domain.ErrBusinessNotFound
	}
	b.DeletedAt = nil
	return nil
}

func (f *fakeBusinessRepo) ForceDelete(id string) error {
	if _, ok := f.businesses[id]; !ok {
		return domain.ErrBusinessNotFound
	}
	delete(f.businesses, id)
	kept := f.memberships.rows[:0]
	for _, m := range f.memberships.rows {
		if m.BusinessID != id {
			kept = append(kept, m)
		}
	}
	f.memberships.rows = kept
	return nil
}

func (f *fakeBusinessRepo) ListForUser(userID string) ([]*domain.Business, error) {
	out := []*domain.Business{}
	for _, m := range f.memberships.rows {
		if m.UserID == nil || *m.UserID != userID || !m.Accepted() {
			continue
		}
		if b, ok := f.businesses[m.BusinessID]; ok && !b.Deleted() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBusinessRepo) List() ([]*domain.Business, error) {
	out := []*domain.Business{}
	for _, b := range f.businesses {
		out = append(out, b)
	}
	return out, nil
}

type fakeMembershipRepo struct {
	seq  int
	rows []*domain.Membership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{}
}

func (f *fakeMembershipRepo) find(userID, businessID string) *domain.Membership {
	for _, m := range f.rows {
		if m.BusinessID == businessID && m.UserID != nil && *m.UserID == userID {
			return m
		}
	}
	return nil
}

func (f *fakeMembershipRepo) GetMember(userID, businessID string) (*domain.Membership, error) {
	if m := f.find(userID, businessID); m != nil {
		return m, nil
	}
	return nil, domain.ErrMembershipNotFound
}

func (f *fakeMembershipRepo) RoleOf(userID, businessID string) (domain.BusinessRole, bool, error) {
	m := f.find(userID, businessID)
	if m == nil || !m.Accepted() {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (f *fakeMembershipRepo) StatusOf(userID, businessID string) (domain.EmploymentStatus, bool, error) {
	m := f.find(userID, businessID)
	if m == nil || !m.Accepted() {
		return "", false, nil
	}
	return m.EmploymentStatus, true, nil
}

func (f *fakeMembershipRepo) Upsert(m *domain.Membership) error {
	for _, other := range f.rows {
		if other.BusinessID == m.BusinessID && other.Email == m.Email {
			other.UserID = m.UserID
			other.Role = m.Role
			other.EmploymentStatus = m.EmploymentStatus
			other.InvitationToken = m.InvitationToken
			other.InvitationAcceptedAt = m.InvitationAcceptedAt
			other.JoinedDate = m.JoinedDate
			m.ID = other.ID
			return nil
		}
	}
	if m.UserID != nil {
		if existing := f.find(*m.UserID, m.BusinessID); existing != nil {
			return domain.ErrConflict
		}
	}
	f.seq++
	m.ID = fmt.Sprintf("member-%d", f.seq)
	m.CreatedAt = time.Now()
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeMembershipRepo) Remove(userID, businessID string) error {
	for i, m := range f.rows {
		if m.BusinessID == businessID && m.UserID != nil && *m.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrMembershipNotFound
}

func (f *fakeMembershipRepo) GetByInvitationToken(token string) (*domain.Membership, error) {
	for _, m := range f.rows {
		if m.InvitationToken != nil && *m.InvitationToken == token && m.InvitationAcceptedAt == nil {
			return m, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (f *fakeMembershipRepo) AcceptInvitation(token, email, userID string) (bool, error) {
	for _, m := range f.rows {
		if m.InvitationToken == nil || *m.InvitationToken != token {
			continue
		}
		if m.Email != email || m.InvitationAcceptedAt != nil {
			continue
		}
		now := time.Now()
		m.UserID = &userID
		m.InvitationToken = nil
		m.InvitationAcceptedAt = &now
		if m.JoinedDate == nil {
			m.JoinedDate = &now
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeMembershipRepo) DeleteByInvitationToken(token string) error {
	for i, m := range f.rows {
		if m.InvitationToken != nil && *m.InvitationToken == token && m.InvitationAcceptedAt == nil {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrInvitationNotFound
}

func (f *fakeMembershipRepo) ListByBusiness(businessID string) ([]*domain.Membership, error) {
	out := []*domain.Membership{}
	for _, m := range f.rows {
		if m.BusinessID == businessID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) ListByUser(userID string) ([]*domain.Membership, error) {
	out := []*domain.Membership{}
	for _, m := range f.rows {
		if m.UserID != nil && *m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) DeleteExpiredInvitations(cutoff time.Time) (int, error) {
	kept := f.rows[:0]
	removed := 0
	for _, m := range f.rows {
		if m.InvitationToken != nil && m.InvitationAcceptedAt == nil && m.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	f.rows = kept
	return removed, nil
}

type fakeFeatureRepo struct {
	rows map[string]*domain.FeatureEntitlement
}

func newFakeFeatureRepo() *fakeFeatureRepo {
	return &fakeFeatureRepo{rows: map[string]*domain.FeatureEntitlement{}}
}

func featureKey(businessID, key string) string { return businessID + "/" + key }

func (f *fakeFeatureRepo) Get(businessID, key string) (*domain.FeatureEntitlement, error) {
	e, ok := f.rows[featureKey(businessID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (f *fakeFeatureRepo) ListByBusiness(businessID string) ([]*domain.FeatureEntitlement, error) {
	out := []*domain.FeatureEntitlement{}
	for _, e := range f.rows {
		if e.BusinessID == businessID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeFeatureRepo) Set(e *domain.FeatureEntitlement) error {
	f.rows[featureKey(e.BusinessID, e.FeatureKey)] = e
	return nil
}

// failingMembershipRepo wraps a fake and fails AcceptInvitation, for testing
// that registration survives a broken invitation link.
type failingMembershipRepo struct {
	*fakeMembershipRepo
}

func (f *failingMembershipRepo) AcceptInvitation(token, email, userID string) (bool, error) {
	return false, fmt.Errorf("store unavailable")
}
