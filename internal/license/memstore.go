package license

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

// MemoryStore is an in-memory Store used by tests. Transact takes the
// lock for the whole callback; there is no rollback, which is fine for
// the happy-path and soft-error scenarios tests exercise.
type MemoryStore struct {
	mu sync.Mutex

	nextID        int64
	WebhookEvents map[string]models.WebhookEvent
	Licenses      map[string]*models.LicenseKey
	SubLicenses   map[string]*models.SubLicense
	Users         map[string]*models.User
	UserLicenses  map[int64]int64 // licenseID -> userID
	Balances      map[int64]int
	Ledger        []models.CreditTransaction
	Plans         map[string]*models.Plan
	Subscriptions []*models.UserSubscription
	Installations map[int64]string
	Leaderboard   map[int64]int
	Notifications []models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		WebhookEvents: make(map[string]models.WebhookEvent),
		Licenses:      make(map[string]*models.LicenseKey),
		SubLicenses:   make(map[string]*models.SubLicense),
		Users:         make(map[string]*models.User),
		UserLicenses:  make(map[int64]int64),
		Balances:      make(map[int64]int),
		Plans:         make(map[string]*models.Plan),
		Installations: make(map[int64]string),
		Leaderboard:   make(map[int64]int),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) Transact(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(memTx{m})
}

// The remaining Store methods delegate to the transaction-scoped view
// under the same mutex Transact uses, so *MemoryStore satisfies Store.

func (m *MemoryStore) RecordWebhookEvent(ctx context.Context, vendor models.Vendor, fingerprint, event, licenseKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.RecordWebhookEvent(ctx, vendor, fingerprint, event, licenseKey)
}

func (m *MemoryStore) GetLicense(ctx context.Context, key string) (*models.LicenseKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.GetLicense(ctx, key)
}

func (m *MemoryStore) UpsertLicense(ctx context.Context, lk *models.LicenseKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UpsertLicense(ctx, lk)
}

func (m *MemoryStore) DeactivateLicense(ctx context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.DeactivateLicense(ctx, key, at)
}

func (m *MemoryStore) GetSubLicense(ctx context.Context, subKey string) (*models.SubLicense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.GetSubLicense(ctx, subKey)
}

func (m *MemoryStore) CreateSubLicense(ctx context.Context, mainLicenseID int64, subKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.CreateSubLicense(ctx, mainLicenseID, subKey)
}

func (m *MemoryStore) CountSubLicenses(ctx context.Context, mainLicenseID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.CountSubLicenses(ctx, mainLicenseID)
}

func (m *MemoryStore) DeactivateSubLicense(ctx context.Context, subKey string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.DeactivateSubLicense(ctx, subKey, at)
}

func (m *MemoryStore) DeactivateSubLicenses(ctx context.Context, mainLicenseID int64, originalKey string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.DeactivateSubLicenses(ctx, mainLicenseID, originalKey, at)
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.GetUserByEmail(ctx, email)
}

func (m *MemoryStore) UpsertUserByEmail(ctx context.Context, email, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UpsertUserByEmail(ctx, email, name)
}

func (m *MemoryStore) GetLicenseUser(ctx context.Context, licenseID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.GetLicenseUser(ctx, licenseID)
}

func (m *MemoryStore) LinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.LinkUserLicense(ctx, userID, licenseID)
}

func (m *MemoryStore) UnlinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UnlinkUserLicense(ctx, userID, licenseID)
}

func (m *MemoryStore) AdjustCredits(ctx context.Context, userID int64, delta int, txType, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.AdjustCredits(ctx, userID, delta, txType, description)
}

func (m *MemoryStore) UpsertPlan(ctx context.Context, vendor models.Vendor, productID, name string, maxUsers int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UpsertPlan(ctx, vendor, productID, name, maxUsers)
}

func (m *MemoryStore) CreateSubscription(ctx context.Context, userID, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.CreateSubscription(ctx, userID, planID)
}

func (m *MemoryStore) CancelActiveSubscriptions(ctx context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.CancelActiveSubscriptions(ctx, userID, at)
}

func (m *MemoryStore) UpsertInstallation(ctx context.Context, userID int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UpsertInstallation(ctx, userID, status)
}

func (m *MemoryStore) UpsertLeaderboard(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.UpsertLeaderboard(ctx, userID)
}

func (m *MemoryStore) CreateNotification(ctx context.Context, userID int64, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.CreateNotification(ctx, userID, message)
}

// memTx is the transaction-scoped view. It skips locking because
// Transact already holds the mutex.
type memTx struct{ m *MemoryStore }

func (t memTx) Transact(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t memTx) RecordWebhookEvent(ctx context.Context, vendor models.Vendor, fingerprint, event, licenseKey string) (bool, error) {
	if _, ok := t.m.WebhookEvents[fingerprint]; ok {
		return false, nil
	}
	t.m.WebhookEvents[fingerprint] = models.WebhookEvent{
		ID: t.m.id(), Vendor: vendor, Fingerprint: fingerprint,
		Event: event, LicenseKey: licenseKey, ReceivedAt: time.Now(),
	}
	return true, nil
}

func (t memTx) GetLicense(ctx context.Context, key string) (*models.LicenseKey, error) {
	lk, ok := t.m.Licenses[key]
	if !ok {
		return nil, nil
	}
	cp := *lk
	return &cp, nil
}

func (t memTx) UpsertLicense(ctx context.Context, lk *models.LicenseKey) error {
	if existing, ok := t.m.Licenses[lk.Key]; ok {
		lk.ID = existing.ID
		lk.CreatedAt = existing.CreatedAt
	} else {
		lk.ID = t.m.id()
		lk.CreatedAt = time.Now()
	}
	lk.UpdatedAt = time.Now()
	cp := *lk
	t.m.Licenses[lk.Key] = &cp
	return nil
}

func (t memTx) DeactivateLicense(ctx context.Context, key string, at time.Time) error {
	if lk, ok := t.m.Licenses[key]; ok {
		lk.Status = models.LicenseInactive
		lk.DeactivatedAt = &at
	}
	return nil
}

func (t memTx) GetSubLicense(ctx context.Context, subKey string) (*models.SubLicense, error) {
	sl, ok := t.m.SubLicenses[subKey]
	if !ok {
		return nil, nil
	}
	cp := *sl
	return &cp, nil
}

func (t memTx) CreateSubLicense(ctx context.Context, mainLicenseID int64, subKey string) error {
	if _, ok := t.m.SubLicenses[subKey]; ok {
		return ErrDuplicateKey
	}
	t.m.SubLicenses[subKey] = &models.SubLicense{
		ID: t.m.id(), Key: subKey, MainLicenseKeyID: mainLicenseID,
		Status: models.LicenseActive, CreatedAt: time.Now(),
	}
	return nil
}

func (t memTx) CountSubLicenses(ctx context.Context, mainLicenseID int64) (int, error) {
	n := 0
	for _, sl := range t.m.SubLicenses {
		if sl.MainLicenseKeyID == mainLicenseID {
			n++
		}
	}
	return n, nil
}

func (t memTx) DeactivateSubLicense(ctx context.Context, subKey string, at time.Time) error {
	if sl, ok := t.m.SubLicenses[subKey]; ok {
		sl.Status = models.LicenseInactive
		sl.DeactivatedAt = &at
	}
	return nil
}

func (t memTx) DeactivateSubLicenses(ctx context.Context, mainLicenseID int64, originalKey string, at time.Time) error {
	for _, sl := range t.m.SubLicenses {
		if sl.MainLicenseKeyID == mainLicenseID {
			sl.Status = models.LicenseInactive
			sl.DeactivatedAt = &at
			key := originalKey
			sl.OriginalLicenseKey = &key
		}
	}
	return nil
}

func (t memTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := t.m.Users[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (t memTx) UpsertUserByEmail(ctx context.Context, email, name string) (int64, error) {
	key := strings.ToLower(email)
	if u, ok := t.m.Users[key]; ok {
		if name != "" {
			u.Name = name
		}
		return u.ID, nil
	}
	u := &models.User{ID: t.m.id(), Email: email, Name: name, CreatedAt: time.Now()}
	t.m.Users[key] = u
	return u.ID, nil
}

func (t memTx) GetLicenseUser(ctx context.Context, licenseID int64) (int64, bool, error) {
	userID, ok := t.m.UserLicenses[licenseID]
	return userID, ok, nil
}

func (t memTx) LinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	t.m.UserLicenses[licenseID] = userID
	return nil
}

func (t memTx) UnlinkUserLicense(ctx context.Context, userID, licenseID int64) error {
	if owner, ok := t.m.UserLicenses[licenseID]; ok && owner == userID {
		delete(t.m.UserLicenses, licenseID)
	}
	return nil
}

func (t memTx) AdjustCredits(ctx context.Context, userID int64, delta int, txType, description string) error {
	if _, ok := t.m.Balances[userID]; !ok {
		initial := delta
		if initial < 0 {
			initial = 0
		}
		t.m.Balances[userID] = initial
	} else {
		t.m.Balances[userID] += delta
	}
	t.m.Ledger = append(t.m.Ledger, models.CreditTransaction{
		ID: t.m.id(), UserID: userID, Type: txType,
		Amount: delta, Description: description, CreatedAt: time.Now(),
	})
	return nil
}

func (t memTx) UpsertPlan(ctx context.Context, vendor models.Vendor, productID, name string, maxUsers int) (int64, error) {
	key := string(vendor) + ":" + productID
	if p, ok := t.m.Plans[key]; ok {
		p.Name = name
		p.MaxUsers = maxUsers
		return p.ID, nil
	}
	p := &models.Plan{ID: t.m.id(), Vendor: vendor, ProductID: productID, Name: name, MaxUsers: maxUsers}
	t.m.Plans[key] = p
	return p.ID, nil
}

func (t memTx) CreateSubscription(ctx context.Context, userID, planID int64) error {
	t.m.Subscriptions = append(t.m.Subscriptions, &models.UserSubscription{
		ID: t.m.id(), UserID: userID, PlanID: planID,
		Status: models.SubscriptionActive, StartDate: time.Now(),
	})
	return nil
}

func (t memTx) CancelActiveSubscriptions(ctx context.Context, userID int64, at time.Time) error {
	for _, sub := range t.m.Subscriptions {
		if sub.UserID == userID && sub.Status == models.SubscriptionActive {
			sub.Status = models.SubscriptionCancelled
			end := at
			sub.EndDate = &end
		}
	}
	return nil
}

func (t memTx) UpsertInstallation(ctx context.Context, userID int64, status string) error {
	t.m.Installations[userID] = status
	return nil
}

func (t memTx) UpsertLeaderboard(ctx context.Context, userID int64) error {
	if _, ok := t.m.Leaderboard[userID]; !ok {
		t.m.Leaderboard[userID] = 0
	}
	return nil
}

func (t memTx) CreateNotification(ctx context.Context, userID int64, message string) error {
	t.m.Notifications = append(t.m.Notifications, models.Notification{
		ID: t.m.id(), UserID: userID, Message: message, CreatedAt: time.Now(),
	})
	return nil
}
