package documents

import (
	"path"
	"strings"

	"knowledge-backend/internal/shared/util"
)

// Storage key layout. Personal documents live flat under the owner's folder;
// company documents under a single shared prefix. The legacy company/ prefix
// predates the documents/ namespace and is still honored on reads.
const (
	usersPrefix         = "users/"
	companyPrefix       = "documents/company/"
	legacyCompanyPrefix = "company/"
)

var uriSchemes = []string{"gs://", "s3://"}

// NormalizeKey canonicalizes a storage key so that a bare key and a fully
// qualified store URI for the same object compare equal. A qualified URI has
// the shape scheme://bucket/key; anything that merely resembles the scheme
// text without a bucket segment is returned as-is (best effort, never fails).
func NormalizeKey(raw string) string {
	for _, scheme := range uriSchemes {
		if !strings.HasPrefix(raw, scheme) {
			continue
		}
		rest := raw[len(scheme):]
		slash := strings.Index(rest, "/")
		if slash < 1 {
			// No bucket/key split after the scheme; not a real URI.
			return raw
		}
		return rest[slash+1:]
	}
	return raw
}

// BuildStorageKey derives the canonical object key for a document. It is a
// pure function of its inputs: re-uploading the same name by the same owner
// always lands on the same key.
func BuildStorageKey(isShared bool, ownerID, fileName string) (string, error) {
	safe, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	if isShared {
		return companyPrefix + safe, nil
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", ErrInvalidInput
	}
	return usersPrefix + ownerID + "/" + safe, nil
}

// OwnerFromKey infers ownership from a normalized key's prefix. Company keys
// have no individual owner.
func OwnerFromKey(key string) (ownerID string, isShared bool) {
	if strings.HasPrefix(key, companyPrefix) || strings.HasPrefix(key, legacyCompanyPrefix) {
		return "", true
	}
	if strings.HasPrefix(key, usersPrefix) {
		parts := strings.SplitN(key[len(usersPrefix):], "/", 2)
		if len(parts) == 2 && parts[0] != "" {
			return parts[0], false
		}
	}
	return "", false
}

// DisplayNameFromKey extracts the user-facing filename from a key.
func DisplayNameFromKey(key string) string {
	return path.Base(key)
}
