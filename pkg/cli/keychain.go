package cli

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/keybase/dbus"
	"github.com/keybase/go-keychain/secretservice"
)

const (
	service    = "fatture"
	collection = secretservice.DefaultCollection
	prefix     = "keychain:"
)

// Keychain resolves a secret by element name.
type Keychain interface {
	Secret(element string) (string, error)
}

// FillKeychainValues replaces every string field of args holding
// "keychain:<element>" with the secret stored in the session keyring under
// service "fatture". The keyring is only opened when such a field exists.
func FillKeychainValues(args any) error {
	return FillValues(args, &secretService{})
}

// FillValues is FillKeychainValues with an explicit keychain. Nested and
// embedded structs are walked too.
func FillValues(args any, kc Keychain) error {
	v := reflect.ValueOf(args)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("args must be a pointer to a struct, got %T", args)
	}
	return fill(v.Elem(), kc)
}

func fill(v reflect.Value, kc Keychain) error {
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		name := v.Type().Field(i).Name
		switch f.Kind() {
		case reflect.Struct:
			if err := fill(f, kc); err != nil {
				return err
			}
		case reflect.Pointer:
			if !f.IsNil() && f.Elem().Kind() == reflect.Struct {
				if err := fill(f.Elem(), kc); err != nil {
					return err
				}
			}
		case reflect.String:
			element, ok := strings.CutPrefix(f.String(), prefix)
			if !ok {
				continue
			}
			if !f.CanSet() {
				return fmt.Errorf("cannot set field %s", name)
			}
			secret, err := kc.Secret(element)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			f.SetString(secret)
		}
	}
	return nil
}

type secretService struct {
	svc     *secretservice.SecretService
	session *secretservice.Session
}

func (s *secretService) Secret(element string) (string, error) {
	if s.svc == nil {
		if err := s.init(); err != nil {
			return "", fmt.Errorf("init secret service: %v", err)
		}
	}
	items, err := s.svc.SearchCollection(collection, secretservice.Attributes{
		"service": service,
		"element": element,
	})
	if err != nil {
		return "", fmt.Errorf("search keychain element: %v", err)
	}
	if len(items) < 1 {
		return "", fmt.Errorf("keychain element %s not found", element)
	}
	if len(items) > 1 {
		return "", fmt.Errorf("found more than one keychain elements for %s", element)
	}
	secret, err := s.svc.GetSecret(items[0], *s.session)
	if err != nil {
		return "", fmt.Errorf("get value from keychain: %v", err)
	}
	return string(secret), nil
}

func (s *secretService) init() error {
	svc, err := secretservice.NewService()
	if err != nil {
		return fmt.Errorf("create keychain service: %v", err)
	}
	if err := svc.Unlock([]dbus.ObjectPath{collection}); err != nil {
		return fmt.Errorf("unlock keychain service: %v", err)
	}
	session, err := svc.OpenSession(secretservice.AuthenticationDHAES)
	if err != nil {
		return fmt.Errorf("open session: %v", err)
	}
	s.svc, s.session = svc, session
	return nil
}
