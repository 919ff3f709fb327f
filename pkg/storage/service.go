/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var logger = log.New("aries-framework/storage")

// RecordTypeTag is added to every record so that all records of a type can be listed.
const RecordTypeTag = "recordType"

var (
	// ErrRecordNotFound is returned when no record exists for an id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateRecord is returned by Save when a record with the same id already exists.
	ErrDuplicateRecord = errors.New("record already exists")
)

// Record is a typed, tagged value stored by the Service.
type Record interface {
	// RecordID returns the unique id of the record within its type.
	RecordID() string
	// RecordTags returns the tags the record can be queried by. Names and values must not contain ':'.
	RecordTags() map[string]string
}

// Service persists records of one type in a store opened from a spi storage provider.
// The record type is the store name.
type Service[T Record] struct {
	recordType string
	store      spi.Store
	lock       sync.Mutex
}

// NewService opens the store for recordType in p.
func NewService[T Record](p spi.Provider, recordType string) (*Service[T], error) {
	if recordType == "" || strings.Contains(recordType, ":") {
		return nil, fmt.Errorf("invalid record type %q", recordType)
	}

	store, err := p.OpenStore(recordType)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", recordType, err)
	}

	return &Service[T]{recordType: recordType, store: store}, nil
}

// RecordType returns the record type served.
func (s *Service[T]) RecordType() string {
	return s.recordType
}

// Save stores a new record. The existence check and the insert are atomic for this Service.
func (s *Service[T]) Save(record T) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.store.Get(record.RecordID())
	if err == nil {
		return fmt.Errorf("save %s %s: %w", s.recordType, record.RecordID(), ErrDuplicateRecord)
	}

	if !errors.Is(err, spi.ErrDataNotFound) {
		return fmt.Errorf("save %s %s: %w", s.recordType, record.RecordID(), err)
	}

	return s.put(record)
}

// Update replaces an existing record.
func (s *Service[T]) Update(record T) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.store.Get(record.RecordID())
	if err != nil {
		return s.notFound("update", record.RecordID(), err)
	}

	return s.put(record)
}

// Delete removes record.
func (s *Service[T]) Delete(record T) error {
	return s.DeleteByID(record.RecordID())
}

// DeleteByID removes the record stored under id.
func (s *Service[T]) DeleteByID(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.store.Get(id)
	if err != nil {
		return s.notFound("delete", id, err)
	}

	err = s.store.Delete(id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", s.recordType, id, err)
	}

	return nil
}

// GetByID returns the record stored under id.
func (s *Service[T]) GetByID(id string) (T, error) {
	var record T

	b, err := s.store.Get(id)
	if err != nil {
		return record, s.notFound("get", id, err)
	}

	err = json.Unmarshal(b, &record)
	if err != nil {
		return record, fmt.Errorf("get %s %s: unmarshal record: %w", s.recordType, id, err)
	}

	return record, nil
}

// GetAll returns every record of this type ordered by id.
func (s *Service[T]) GetAll() ([]T, error) {
	return s.query(RecordTypeTag + ":" + s.recordType)
}

// FindByQuery returns the records whose tags match every name/value pair of query, ordered by id.
// An empty query matches all records.
func (s *Service[T]) FindByQuery(query map[string]string) ([]T, error) {
	if len(query) == 0 {
		return s.GetAll()
	}

	names := maps.Keys(query)
	slices.Sort(names)

	for _, name := range names {
		if strings.Contains(name, ":") || strings.Contains(query[name], ":") {
			return nil, fmt.Errorf("invalid query term %s=%s", name, query[name])
		}
	}

	// not every provider supports "&&" expressions: the store matches the first term, the rest are matched here
	candidates, err := s.query(names[0] + ":" + query[names[0]])
	if err != nil {
		return nil, err
	}

	records := candidates[:0]

	for _, r := range candidates {
		tags := r.RecordTags()

		if slices.IndexFunc(names[1:], func(name string) bool { return tags[name] != query[name] }) < 0 {
			records = append(records, r)
		}
	}

	return records, nil
}

// Clear deletes every record of this type.
func (s *Service[T]) Clear() error {
	records, err := s.GetAll()
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	for _, r := range records {
		err = s.store.Delete(r.RecordID())
		if err != nil {
			return fmt.Errorf("clear %s: %w", s.recordType, err)
		}
	}

	logger.Debugf("cleared %d %s records", len(records), s.recordType)

	return nil
}

func (s *Service[T]) put(record T) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", s.recordType, err)
	}

	tags := []spi.Tag{{Name: RecordTypeTag, Value: s.recordType}}

	names := maps.Keys(record.RecordTags())
	slices.Sort(names)

	for _, name := range names {
		tags = append(tags, spi.Tag{Name: name, Value: record.RecordTags()[name]})
	}

	err = s.store.Put(record.RecordID(), b, tags...)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", s.recordType, record.RecordID(), err)
	}

	return nil
}

func (s *Service[T]) query(expression string) ([]T, error) {
	iter, err := s.store.Query(expression)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.recordType, err)
	}

	defer spi.Close(iter, logger)

	var records []T

	for {
		ok, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.recordType, err)
		}

		if !ok {
			break
		}

		b, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.recordType, err)
		}

		var record T

		err = json.Unmarshal(b, &record)
		if err != nil {
			return nil, fmt.Errorf("query %s: unmarshal record: %w", s.recordType, err)
		}

		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b T) int {
		return strings.Compare(a.RecordID(), b.RecordID())
	})

	return records, nil
}

func (s *Service[T]) notFound(op, id string, err error) error {
	if errors.Is(err, spi.ErrDataNotFound) {
		return fmt.Errorf("%s %s %s: %w", op, s.recordType, id, ErrRecordNotFound)
	}

	return fmt.Errorf("%s %s %s: %w", op, s.recordType, id, err)
}
