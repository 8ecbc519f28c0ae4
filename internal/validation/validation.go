// Package validation checks identifiers that reach the server from the wire.
package validation

import (
	"fmt"
	"regexp"
)

// SubjectPattern определяет допустимый формат владельца записей (JWT subject)
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var SubjectPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// RecordTypePattern - тег типа записи: строчные буквы, цифры, '_' и '-'
var RecordTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

const (
	// MinSubjectLen минимальная длина subject
	MinSubjectLen = 3
	// MaxSubjectLen максимальная длина subject
	MaxSubjectLen = 32
	// MaxRecordIDLen максимальная длина идентификатора записи
	MaxRecordIDLen = 128
)

// ValidateSubject проверяет владельца, которому выдается токен
func ValidateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}

	if len(subject) < MinSubjectLen {
		return fmt.Errorf("subject must be at least %d characters long", MinSubjectLen)
	}

	if len(subject) > MaxSubjectLen {
		return fmt.Errorf("subject must not exceed %d characters", MaxSubjectLen)
	}

	if !SubjectPattern.MatchString(subject) {
		return fmt.Errorf("subject can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidateRecordType проверяет тег типа из пути /api/v1/{type}
func ValidateRecordType(recordType string) error {
	if recordType == "" {
		return fmt.Errorf("record type cannot be empty")
	}

	if !RecordTypePattern.MatchString(recordType) {
		return fmt.Errorf("record type %q must start with a lowercase letter and contain only a-z, 0-9, '_' or '-'", recordType)
	}

	return nil
}

// ValidateRecordID проверяет идентификатор записи
// Управляющие символы и '/' запрещены: id попадает в путь запроса
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	if len(id) > MaxRecordIDLen {
		return fmt.Errorf("record id must not exceed %d characters", MaxRecordIDLen)
	}

	for _, r := range id {
		if r < 0x20 || r == 0x7f || r == '/' {
			return fmt.Errorf("record id contains forbidden character %q", r)
		}
	}

	return nil
}
