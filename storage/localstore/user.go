package localstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/user"
)

// userRecord is the stored shape of a user.User; unlike the API shape it keeps the password hash.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash []byte    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLogin    time.Time `json:"lastLogin"`
}

type userRepository struct {
	store *Store
	ids   core.IDGen
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(store *Store, ids core.IDGen) user.Repository {
	return &userRepository{store: store, ids: ids}
}

func (repo *userRepository) boil(usr user.User) userRecord {
	return userRecord{
		ID:           usr.ID,
		Username:     usr.Username,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
}

func (repo *userRepository) unboil(rec userRecord) user.User {
	return user.User{
		ID:           rec.ID,
		Username:     rec.Username,
		Name:         rec.Name,
		Email:        rec.Email,
		Role:         rec.Role,
		IsActive:     rec.IsActive,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
		LastLogin:    rec.LastLogin,
	}
}

func (repo *userRepository) query(ctx context.Context) ([]user.User, error) {
	var records []userRecord
	if err := repo.store.Read(ctx, CollectionUsers, &records); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(records))
	for _, rec := range records {
		users = append(users, repo.unboil(rec))
	}
	return users, nil
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if excl == id {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	users, err := repo.query(ctx)
	if err != nil {
		return err
	}
	for _, usr := range users {
		if isExcluded(usr.ID, excludedIDs) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	var records []userRecord
	err := repo.store.Update(ctx, CollectionUsers, &records, func() (bool, error) {
		for _, rec := range records {
			if rec.Username == usr.Username {
				return false, user.ErrUsernameExists
			}
		}
		usr.ID = repo.ids.NewID()
		records = append(records, repo.boil(usr))
		return true, nil
	})
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	users, err := repo.query(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(filter.Search)
	filtered := make([]user.User, 0, len(users))
	for _, u := range users {
		// users with search keyword matching any Name, Username or Email ?
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		filtered = append(filtered, u)
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Username < filtered[j].Username })
	return filtered, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	users, err := repo.query(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, usr := range users {
		if usr.ID == id {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	users, err := repo.query(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, usr := range users {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	var records []userRecord
	err := repo.store.Update(ctx, CollectionUsers, &records, func() (bool, error) {
		for i := range records {
			if records[i].ID == usr.ID {
				// keep the stored hash & creation date when not set
				if usr.PasswordHash == nil {
					usr.PasswordHash = records[i].PasswordHash
				}
				if usr.CreatedAt.IsZero() {
					usr.CreatedAt = records[i].CreatedAt
				}
				records[i] = repo.boil(usr)
				return true, nil
			}
		}
		return false, user.ErrNotFound
	})
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.unboil(repo.boil(usr)), nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	var records []userRecord
	err := repo.store.Update(ctx, CollectionUsers, &records, func() (bool, error) {
		kept := records[:0]
		for _, rec := range records {
			if !isExcluded(rec.ID, ids) {
				kept = append(kept, rec)
			}
		}
		changed := len(kept) != len(records)
		records = kept
		return changed, nil
	})
	return errors.Wrap(err, "deleting users")
}
