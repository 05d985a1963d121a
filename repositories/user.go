//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"pairchat/domain"
	"pairchat/errors"
)

type IUserRepository interface {
	Create(user domain.User) error
	GetByUsername(username string) (domain.User, error)
	GetByID(id string) (domain.User, error)
	Exists(id string) (bool, error)
	// Search runs a keyword lookup over username and display name,
	// excluding the calling user, capped at limit results.
	Search(ctx context.Context, keyword, excludeID string, limit int) ([]domain.User, error)
}

// UserRepository keeps the account records in badger and mirrors the
// searchable fields into a bluge index for the directory lookup.
type UserRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewUserRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) UserRepository {
	return UserRepository{db: db, index: index, log: log}
}

type diskUser struct {
	ID           string   `cbor:"1,keyasint"`
	Username     string   `cbor:"2,keyasint"`
	Name         string   `cbor:"3,keyasint"`
	AvatarURL    string   `cbor:"4,keyasint"`
	PasswordHash string   `cbor:"5,keyasint"`
	Roles        []string `cbor:"6,keyasint"`
	CreatedAt    int64    `cbor:"7,keyasint"`
}

func usernameKey(username string) []byte { return []byte("user:" + username) }
func userIDKey(id string) []byte         { return []byte("uid:" + id) }

// Create persists the user and rejects duplicate usernames inside the same
// transaction, then indexes the searchable fields.
func (r UserRepository) Create(user domain.User) error {
	record, err := cbor.Marshal(fromUser(user))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(usernameKey(user.Username), record); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(user.Username))
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrUserAlreadyExists) {
			return err
		}
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	return r.indexUser(user)
}

func (r UserRepository) indexUser(user domain.User) error {
	doc := bluge.NewDocument(user.ID)
	doc.AddField(bluge.NewTextField("username", user.Username).StoreValue())
	doc.AddField(bluge.NewTextField("name", user.Name).StoreValue())
	if err := r.index.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("%w: index user: %v", errors.ErrStorage, err)
	}
	return nil
}

func (r UserRepository) GetByUsername(username string) (domain.User, error) {
	var record diskUser
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &record)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return toUser(record), nil
}

func (r UserRepository) GetByID(id string) (domain.User, error) {
	var username string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			username = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return r.GetByUsername(username)
}

func (r UserRepository) Exists(id string) (bool, error) {
	_, err := r.GetByID(id)
	if stderrors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Search matches the keyword as a substring of username or display name,
// mirroring the ILIKE %kw% behavior of the directory endpoint.
func (r UserRepository) Search(ctx context.Context, keyword, excludeID string, limit int) ([]domain.User, error) {
	reader, err := r.index.Reader()
	if err != nil {
		return nil, fmt.Errorf("%w: open reader: %v", errors.ErrStorage, err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			r.log.Warn("closing search reader", "error", err)
		}
	}()

	pattern := "*" + strings.ToLower(strings.TrimSpace(keyword)) + "*"
	query := bluge.NewBooleanQuery().
		AddShould(bluge.NewWildcardQuery(pattern).SetField("username")).
		AddShould(bluge.NewWildcardQuery(pattern).SetField("name")).
		SetMinShould(1)

	// limit+1 leaves room to drop the excluded caller from the page.
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit+1, query))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", errors.ErrStorage, err)
	}

	var users []domain.User
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: search iteration: %v", errors.ErrStorage, err)
		}
		if match == nil || len(users) == limit {
			break
		}
		var id string
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				id = string(value)
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("%w: stored fields: %v", errors.ErrStorage, err)
		}
		if id == "" || id == excludeID {
			continue
		}
		user, err := r.GetByID(id)
		if stderrors.Is(err, errors.ErrNotFound) {
			// Index can briefly run ahead of a deleted record; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func fromUser(user domain.User) diskUser {
	return diskUser{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		AvatarURL:    user.AvatarURL,
		PasswordHash: user.PasswordHash,
		Roles:        user.Roles,
		CreatedAt:    user.CreatedAt.UnixNano(),
	}
}

func toUser(record diskUser) domain.User {
	return domain.User{
		ID:           record.ID,
		Username:     record.Username,
		Name:         record.Name,
		AvatarURL:    record.AvatarURL,
		PasswordHash: record.PasswordHash,
		Roles:        record.Roles,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
