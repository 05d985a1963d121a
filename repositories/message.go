//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"pairchat/domain"
	"pairchat/errors"
)

type IMessageRepository interface {
	// Append persists one message. The key embeds the server timestamp, so
	// an append is ordered after everything previously committed for the
	// same conversation.
	Append(msg domain.Message) error
	// List returns the whole history in ascending timestamp order, stable
	// across calls.
	List(conversationID domain.ConversationID) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID             string `cbor:"1,keyasint"`
	ConversationID string `cbor:"2,keyasint"`
	SenderID       string `cbor:"3,keyasint"`
	Content        string `cbor:"4,keyasint"`
	At             int64  `cbor:"5,keyasint"`
}

// messageKey is "msg:{conversation}:{timestamp_padded}:{uuid}":
//  1. 19-digit zero padding keeps lexicographic order equal to time order.
//  2. The UUID suffix disambiguates two messages landing on the same
//     nanosecond without losing either.
func messageKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		msg.ConversationID,
		msg.CreatedAt.UnixNano(),
		msg.ID,
	))
}

func (r MessageRepository) Append(msg domain.Message) error {
	record, err := cbor.Marshal(fromMessage(msg))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), record)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

// List walks the conversation prefix forward; thanks to the padded
// timestamp in the key, no sort is needed.
func (r MessageRepository) List(conversationID domain.ConversationID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", conversationID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record diskMessage
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			msg, err := toMessage(record)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return msgs, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID.String(),
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		At:             msg.CreatedAt.UnixNano(),
	}
}

func toMessage(record diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		ConversationID: domain.ConversationID(record.ConversationID),
		SenderID:       record.SenderID,
		Content:        record.Content,
		CreatedAt:      time.Unix(0, record.At).UTC(),
	}, nil
}
