//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

type IConversationRepository interface {
	// FindByPair returns the one conversation for the sorted pair,
	// or ErrNotFound.
	FindByPair(key domain.PairKey) (domain.Conversation, error)
	// Create writes a fresh conversation for the pair in one transaction.
	// Returns ErrConflict when the pair already exists or when a concurrent
	// Create committed first; the caller re-resolves and finds the winner.
	Create(key domain.PairKey) (domain.Conversation, error)
	Get(id domain.ConversationID) (domain.Conversation, error)
	ListFor(userID string) ([]domain.Conversation, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// diskConversation is the stored shape. Times are kept as unix nanos so the
// record stays byte-stable across hosts.
type diskConversation struct {
	ID           string    `cbor:"1,keyasint"`
	Participants [2]string `cbor:"2,keyasint"`
	CreatedAt    int64     `cbor:"3,keyasint"`
}

func conversationKey(id domain.ConversationID) []byte {
	return []byte("conv:" + id.String())
}

func pairIndexKey(key domain.PairKey) []byte {
	return []byte(fmt.Sprintf("pair:%s:%s", key.Low, key.High))
}

func memberIndexKey(userID string, id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("uconv:%s:%s", userID, id))
}

func (r ConversationRepository) FindByPair(key domain.PairKey) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairIndexKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			conv, err = r.getInTxn(txn, domain.ConversationID(val))
			return err
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return conv, nil
}

// Create relies on badger's transactional conflict detection: the read of
// the absent pair key and the subsequent writes commit atomically, so two
// simultaneous first contacts cannot both create a row.
func (r ConversationRepository) Create(key domain.PairKey) (domain.Conversation, error) {
	conv := domain.Conversation{
		ID:           domain.ConversationID(uuid.NewString()),
		Participants: [2]string{key.Low, key.High},
		CreatedAt:    time.Now().UTC(),
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(pairIndexKey(key)); err == nil {
			return errors.ErrConflict
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		record, err := cbor.Marshal(fromConversation(conv))
		if err != nil {
			return err
		}
		if err := txn.Set(conversationKey(conv.ID), record); err != nil {
			return err
		}
		if err := txn.Set(pairIndexKey(key), []byte(conv.ID)); err != nil {
			return err
		}
		for _, userID := range conv.Participants {
			if err := txn.Set(memberIndexKey(userID, conv.ID), []byte(conv.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if stderrors.Is(err, badger.ErrConflict) || stderrors.Is(err, errors.ErrConflict) {
		return domain.Conversation{}, errors.ErrConflict
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return conv, nil
}

func (r ConversationRepository) Get(id domain.ConversationID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conv, err = r.getInTxn(txn, id)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return conv, nil
}

// ListFor scans the member index of one user. Order is by conversation ID,
// which is stable but not meaningful; callers sort by their own criteria.
func (r ConversationRepository) ListFor(userID string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("uconv:%s:", userID))
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				conv, err := r.getInTxn(txn, domain.ConversationID(val))
				if err != nil {
					return err
				}
				convs = append(convs, conv)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return convs, nil
}

func (r ConversationRepository) getInTxn(txn *badger.Txn, id domain.ConversationID) (domain.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	var record diskConversation
	if err := item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &record)
	}); err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(record), nil
}

func fromConversation(conv domain.Conversation) diskConversation {
	return diskConversation{
		ID:           conv.ID.String(),
		Participants: conv.Participants,
		CreatedAt:    conv.CreatedAt.UnixNano(),
	}
}

func toConversation(record diskConversation) domain.Conversation {
	return domain.Conversation{
		ID:           domain.ConversationID(record.ID),
		Participants: record.Participants,
		CreatedAt:    time.Unix(0, record.CreatedAt).UTC(),
	}
}
