//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const userPrefix = "user:"

// IUserRepository holds the display profile of users, used to resolve chat senders.
type IUserRepository interface {
	PutUser(ctx context.Context, profile domain.Profile) error
	GetUser(ctx context.Context, userID domain.ParticipantID) (domain.Profile, error)
}

var _ IUserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

type diskUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar,omitempty"`
}

// PutUser creates or replaces the profile of a user.
// Messages already recorded keep the display fields they were stored with.
func (u *UserRepository) PutUser(ctx context.Context, profile domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(diskUser{ID: string(profile.ID), Username: profile.Username, Avatar: profile.Avatar})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(profile.ID), data)
	})
}

// GetUser returns ErrUserNotFound when no profile was ever stored.
func (u *UserRepository) GetUser(ctx context.Context, userID domain.ParticipantID) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	var profile domain.Profile
	err := u.db.View(func(txn *badger.Txn) error {
		p, found, err := getProfile(txn, userID)
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrUserNotFound
		}
		profile = p
		return nil
	})
	return profile, err
}

// getProfile reads a profile inside an existing transaction.
func getProfile(txn *badger.Txn, userID domain.ParticipantID) (domain.Profile, bool, error) {
	item, err := txn.Get(userKey(userID))
	if err == badger.ErrKeyNotFound {
		return domain.Profile{}, false, nil
	}
	if err != nil {
		return domain.Profile{}, false, err
	}

	var user diskUser
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &user)
	})
	if err != nil {
		return domain.Profile{}, false, err
	}
	return domain.Profile{
		ID:       domain.ParticipantID(user.ID),
		Username: user.Username,
		Avatar:   user.Avatar,
	}, true, nil
}

func userKey(userID domain.ParticipantID) []byte {
	return []byte(userPrefix + string(userID))
}
