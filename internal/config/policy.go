package config

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

// Policy describes how uploads to one route are accepted and stored.
type Policy struct {
	Name         string        `yaml:"-"`
	Prefix       string        `yaml:"prefix"`
	ACL          storage.ACL   `yaml:"acl"`
	AllowedTypes []string      `yaml:"allowed_types"`
	MaxFileSize  ByteSize      `yaml:"max_file_size"`
	MaxFieldSize ByteSize      `yaml:"max_field_size"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxFiles     int           `yaml:"max_files"`
	MaxFields    int           `yaml:"max_fields"`
}

var policyName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

func (p Policy) validate() error {
	switch {
	case !policyName.MatchString(p.Name):
		return fmt.Errorf("%w: policy name %q", ErrInvalid, p.Name)
	case p.MaxFiles < 1:
		return fmt.Errorf("%w: policy %s: max_files must be at least 1", ErrInvalid, p.Name)
	case p.MaxFileSize <= 0:
		return fmt.Errorf("%w: policy %s: max_file_size is required", ErrInvalid, p.Name)
	case len(p.AllowedTypes) == 0:
		return fmt.Errorf("%w: policy %s: allowed_types is required", ErrInvalid, p.Name)
	case p.Timeout < 0:
		return fmt.Errorf("%w: policy %s: timeout must not be negative", ErrInvalid, p.Name)
	}

	switch p.ACL {
	case "", storage.ACLPrivate, storage.ACLPublicRead:
	default:
		return fmt.Errorf("%w: policy %s: unknown acl %q", ErrInvalid, p.Name, p.ACL)
	}
	return nil
}

type policyFile struct {
	Policies map[string]Policy `yaml:"policies"`
}

// ParsePolicies decodes a policy document:
//
//	policies:
//	  avatars:
//	    max_files: 1
//	    max_file_size: 2MiB
//	    allowed_types: [image/png, image/jpeg]
//	    timeout: 30s
func ParsePolicies(r io.Reader) (map[string]Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc policyFile
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrLoadPolicies, err)
	}

	for name, p := range doc.Policies {
		p.Name = name
		if p.MaxFiles == 0 {
			p.MaxFiles = 1
		}
		if p.Prefix == "" {
			p.Prefix = name
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		doc.Policies[name] = p
	}
	return doc.Policies, nil
}

// DefaultPolicies is used when no policy file is configured.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"documents": {
			Name:         "documents",
			Prefix:       "documents",
			AllowedTypes: []string{"application/pdf", "text/plain", "image/*"},
			MaxFileSize:  25 * MiB,
			MaxFiles:     10,
			MaxFields:    20,
			MaxFieldSize: 64 * KiB,
			Timeout:      5 * time.Minute,
		},
	}
}

// ByteSize is a byte count that accepts suffixed values in YAML ("512KiB", "10MB").
type ByteSize int64

const (
	KiB ByteSize = 1 << 10
	MiB ByteSize = 1 << 20
	GiB ByteSize = 1 << 30
)

var byteUnits = []struct {
	suffix string
	mult   ByteSize
}{
	{"gib", GiB}, {"mib", MiB}, {"kib", KiB},
	{"gb", 1000 * 1000 * 1000}, {"mb", 1000 * 1000}, {"kb", 1000},
	{"b", 1},
}

func ParseByteSize(s string) (ByteSize, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	mult := ByteSize(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(v, u.suffix) {
			v, mult = strings.TrimSpace(strings.TrimSuffix(v, u.suffix)), u.mult
			break
		}
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return ByteSize(n) * mult, nil
}

func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseByteSize(node.Value)
	if err != nil {
		return err
	}
	*b = v
	return nil
}
