package core

import "github.com/google/uuid"

// ObjectKey identifies a scene object for the lifetime of the object, independent
// of where it lives in memory. Caches keyed by ObjectKey never alias a freed object.
type ObjectKey uuid.UUID

// NilObjectKey is the zero key. It is never handed out by NewObjectKey.
var NilObjectKey = ObjectKey(uuid.Nil)

func NewObjectKey() ObjectKey {
	return ObjectKey(uuid.New())
}

// ParseObjectKey reads the textual form produced by String.
func ParseObjectKey(s string) (ObjectKey, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilObjectKey, err
	}
	return ObjectKey(id), nil
}

func (k ObjectKey) IsNil() bool {
	return k == NilObjectKey
}

func (k ObjectKey) String() string {
	return uuid.UUID(k).String()
}
