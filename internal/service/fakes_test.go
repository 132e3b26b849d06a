package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phoebe/phoebe/internal/auth"
	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
)

var fastParams = auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func fastHash(password string) (string, error) {
	return auth.HashPasswordWithParams(password, fastParams)
}

// memStore is an in-memory implementation of every store interface.
type memStore struct {
	mu sync.Mutex

	users    map[string]*model.User
	roles    map[string]*model.Role
	perms    map[string]*model.Permission
	terms    map[string]*model.Term
	news     map[string]*model.News
	blocks   map[string]*model.HomePageBlock
	homepage *model.HomepageSettings
	channel  *model.ChannelSettings

	usernameLookups int
	newsLookups     int
	newsListErr     error
}

func newMemStore() *memStore {
	s := &memStore{
		users:  make(map[string]*model.User),
		roles:  make(map[string]*model.Role),
		perms:  make(map[string]*model.Permission),
		terms:  make(map[string]*model.Term),
		news:   make(map[string]*model.News),
		blocks: make(map[string]*model.HomePageBlock),
	}

	read := &model.Permission{ID: "perm-news-read", Name: "news:read"}
	write := &model.Permission{ID: "perm-news-write", Name: "news:write"}
	users := &model.Permission{ID: "perm-users-write", Name: "users:write"}
	s.perms[read.ID], s.perms[write.ID], s.perms[users.ID] = read, write, users

	admin := model.NewRole(model.RoleAdmin, "")
	admin.ID = "role-admin"
	admin.SetPermissions([]*model.Permission{read, write, users})
	editor := model.NewRole(model.RoleEditor, "")
	editor.ID = "role-editor"
	editor.SetPermissions([]*model.Permission{read, write})
	s.roles[admin.ID], s.roles[editor.ID] = admin, editor

	return s
}

// addUser stores an active user holding roleIDs with password "password1".
func (s *memStore) addUser(t *testing.T, username string, roleIDs ...string) *model.User {
	t.Helper()
	hash, err := fastHash("password1")
	require.NoError(t, err)

	u := model.NewUser(username, "")
	u.ID = "user-" + u.Username
	u.PasswordHash = hash
	u.Active = true
	for _, id := range roleIDs {
		u.AddRole(s.roles[id])
	}

	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u
}

func (s *memStore) addTerm(name, vocabulary string) *model.Term {
	t := model.NewTerm(name, vocabulary)
	t.ID = "term-" + strings.ToLower(name)
	s.mu.Lock()
	s.terms[t.ID] = t
	s.mu.Unlock()
	return t
}

func (s *memStore) addNews(id, authorID string, published bool, pubDate time.Time, terms ...*model.Term) *model.News {
	n := &model.News{
		ID:              id,
		Title:           "News " + id,
		Teaser:          "Teaser " + id,
		AuthorID:        authorID,
		Published:       published,
		PublicationDate: pubDate,
		Terms:           []*model.Term{},
	}
	for _, t := range terms {
		n.AddTerm(t)
	}
	s.mu.Lock()
	s.news[id] = n
	s.mu.Unlock()
	return n
}

// Users

func (s *memStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return repository.ErrUsernameExists
		}
		if u.Email != "" && existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernameLookups++
	for _, u := range s.users {
		if u.Username == model.NormalizeUsername(username) {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) ListUsers(_ context.Context) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memStore) UpdateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Username == u.Username {
			return repository.ErrUsernameExists
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	for _, n := range s.news {
		if n.AuthorID == id {
			return repository.ErrUserHasNews
		}
	}
	delete(s.users, id)
	return nil
}

func (s *memStore) ListUserIDsByRole(_ context.Context, roleID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, u := range s.users {
		for _, r := range u.Roles {
			if r.ID == roleID {
				ids = append(ids, u.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Roles and permissions

func (s *memStore) CreateRole(_ context.Context, r *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == r.Name {
			return repository.ErrRoleExists
		}
	}
	s.roles[r.ID] = r
	return nil
}

func (s *memStore) GetRoleByID(_ context.Context, id string) (*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, repository.ErrRoleNotFound
	}
	return r, nil
}

func (s *memStore) ListRoles(_ context.Context) ([]*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetRolesByIDs(_ context.Context, ids []string) ([]*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Role
	for _, id := range ids {
		if r, ok := s.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ListRolesByUserID(_ context.Context, userID string) ([]*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(u.Roles), nil
}

func (s *memStore) UpdateRole(_ context.Context, r *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID]; !ok {
		return repository.ErrRoleNotFound
	}
	s.roles[r.ID] = r
	return nil
}

func (s *memStore) DeleteRole(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return repository.ErrRoleNotFound
	}
	for _, u := range s.users {
		u.RemoveRole(r)
	}
	delete(s.roles, id)
	return nil
}

func (s *memStore) ListPermissions(_ context.Context) ([]*model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) GetPermissionByID(_ context.Context, id string) (*model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	if !ok {
		return nil, repository.ErrPermissionNotFound
	}
	return p, nil
}

func (s *memStore) GetPermissionsByIDs(_ context.Context, ids []string) ([]*model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Permission
	for _, id := range ids {
		if p, ok := s.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Terms

func (s *memStore) CreateTerm(_ context.Context, t *model.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.terms {
		if existing.Equal(t) {
			return repository.ErrTermExists
		}
	}
	s.terms[t.ID] = t
	return nil
}

func (s *memStore) GetTermByID(_ context.Context, id string) (*model.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.terms[id]
	if !ok {
		return nil, repository.ErrTermNotFound
	}
	c := *t
	return &c, nil
}

func (s *memStore) GetTermsByIDs(_ context.Context, ids []string) ([]*model.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Term
	for _, id := range ids {
		if t, ok := s.terms[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) ListTerms(_ context.Context, vocabulary string) ([]*model.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Term
	for _, t := range s.terms {
		if vocabulary == "" || t.Vocabulary == vocabulary {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) UpdateTerm(_ context.Context, t *model.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.terms[t.ID]; !ok {
		return repository.ErrTermNotFound
	}
	for id, existing := range s.terms {
		if id != t.ID && existing.Equal(t) {
			return repository.ErrTermExists
		}
	}
	s.terms[t.ID] = t
	return nil
}

func (s *memStore) DeleteTerm(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.terms[id]; !ok {
		return repository.ErrTermNotFound
	}
	delete(s.terms, id)
	return nil
}

// News

func (s *memStore) CreateNews(_ context.Context, n *model.News) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	s.news[n.ID] = &c
	return nil
}

func (s *memStore) GetNewsByID(_ context.Context, id string) (*model.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newsLookups++
	n, ok := s.news[id]
	if !ok {
		return nil, repository.ErrNewsNotFound
	}
	c := *n
	return &c, nil
}

func (s *memStore) UpdateNews(_ context.Context, n *model.News) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.news[n.ID]
	if !ok {
		return repository.ErrNewsNotFound
	}
	if stored.Version != n.Version {
		return repository.ErrStaleVersion
	}
	n.Version++
	c := *n
	s.news[n.ID] = &c
	return nil
}

func (s *memStore) DeleteNews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.news[id]; !ok {
		return repository.ErrNewsNotFound
	}
	delete(s.news, id)
	return nil
}

func (s *memStore) ListNews(_ context.Context, f repository.NewsFilter, page, size int) ([]*model.News, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newsListErr != nil {
		return nil, 0, s.newsListErr
	}

	var matched []*model.News
	for _, n := range s.news {
		if f.AuthorID != "" && n.AuthorID != f.AuthorID {
			continue
		}
		if f.TermID != "" && !slices.Contains(n.TermIDs(), f.TermID) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(n.Title+" "+n.Teaser+" "+n.Body), strings.ToLower(f.Query)) {
			continue
		}
		if f.Published != nil && n.Published != *f.Published {
			continue
		}
		if f.OnlyVisible && !visible(n) {
			continue
		}
		matched = append(matched, n)
	}
	sortNewest(matched)

	total := int64(len(matched))
	start := min(page*size, len(matched))
	end := min(start+size, len(matched))
	return matched[start:end], total, nil
}

func (s *memStore) ListPublishedByTerms(_ context.Context, termIDs []string, limit int) ([]*model.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newsListErr != nil {
		return nil, s.newsListErr
	}

	var matched []*model.News
	for _, n := range s.news {
		if !visible(n) {
			continue
		}
		if len(termIDs) > 0 && !slices.ContainsFunc(n.TermIDs(), func(id string) bool { return slices.Contains(termIDs, id) }) {
			continue
		}
		matched = append(matched, n)
	}
	sortNewest(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *memStore) BulkDeleteNews(_ context.Context, sel model.NewsSelector) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, item := range s.news {
		if selected(item, sel) {
			delete(s.news, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) BulkUnpublishNews(_ context.Context, sel model.NewsSelector) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, item := range s.news {
		if item.Published && selected(item, sel) {
			item.Published = false
			item.Version++
			n++
		}
	}
	return n, nil
}

func visible(n *model.News) bool {
	return n.Published && !n.PublicationDate.After(time.Now())
}

func sortNewest(items []*model.News) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublicationDate.After(items[j].PublicationDate)
	})
}

func selected(n *model.News, sel model.NewsSelector) bool {
	switch sel.Filter {
	case model.BulkFilterByIDs:
		return slices.Contains(sel.IDs, n.ID)
	case model.BulkFilterByTerm:
		return slices.Contains(n.TermIDs(), sel.TermID)
	case model.BulkFilterByAuthor:
		return n.AuthorID == sel.AuthorID
	case model.BulkFilterAll:
		return true
	}
	return false
}

// Homepage and channel

func (s *memStore) CreateBlock(_ context.Context, b *model.HomePageBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.ID] = b
	return nil
}

func (s *memStore) GetBlockByID(_ context.Context, id string) (*model.HomePageBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[id]
	if !ok {
		return nil, repository.ErrBlockNotFound
	}
	return b, nil
}

func (s *memStore) ListBlocks(_ context.Context) ([]*model.HomePageBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.HomePageBlock, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weight < out[j].Weight })
	return out, nil
}

func (s *memStore) UpdateBlock(_ context.Context, b *model.HomePageBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[b.ID]; !ok {
		return repository.ErrBlockNotFound
	}
	s.blocks[b.ID] = b
	return nil
}

func (s *memStore) DeleteBlock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[id]; !ok {
		return repository.ErrBlockNotFound
	}
	delete(s.blocks, id)
	return nil
}

func (s *memStore) GetHomepageSettings(_ context.Context) (*model.HomepageSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.homepage == nil {
		return &model.HomepageSettings{Mode: model.DefaultHomepageMode}, nil
	}
	c := *s.homepage
	return &c, nil
}

func (s *memStore) SaveHomepageSettings(_ context.Context, hs *model.HomepageSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *hs
	s.homepage = &c
	return nil
}

func (s *memStore) GetChannelSettings(_ context.Context) (*model.ChannelSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel == nil {
		return nil, repository.ErrChannelSettingsNotFound
	}
	c := *s.channel
	return &c, nil
}

func (s *memStore) SaveChannelSettings(_ context.Context, cs *model.ChannelSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cs
	s.channel = &c
	return nil
}

// memCache implements PrincipalCache and HomepageCache.
type memCache struct {
	mu            sync.Mutex
	principals    map[string]model.Principal
	credentials   map[string]string
	homepage      []byte
	invalidations int
	deleted       []string
}

func newMemCache() *memCache {
	return &memCache{
		principals:  make(map[string]model.Principal),
		credentials: make(map[string]string),
	}
}

func (c *memCache) GetPrincipal(_ context.Context, userID string) (*model.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.principals[userID]
	if !ok {
		return nil, nil
	}
	p.AuthMethod = ""
	return &p, nil
}

func (c *memCache) SetPrincipal(_ context.Context, p *model.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principals[p.UserID] = *p
	return nil
}

func (c *memCache) DeletePrincipal(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.principals, userID)
	for digest, id := range c.credentials {
		if id == userID {
			delete(c.credentials, digest)
		}
	}
	c.deleted = append(c.deleted, userID)
	return nil
}

func (c *memCache) GetCredentialUser(_ context.Context, digest string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credentials[digest], nil
}

func (c *memCache) SetCredentialUser(_ context.Context, digest, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials[digest] = userID
	return nil
}

func (c *memCache) GetHomepage(_ context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.homepage, nil
}

func (c *memCache) SetHomepage(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homepage = data
	return nil
}

func (c *memCache) InvalidateHomepage(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homepage = nil
	c.invalidations++
	return nil
}
