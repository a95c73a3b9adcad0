package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// FingerprintSource identifies which rule produced a Fingerprint, which
// the cleaner needs to decide whether to reuse it as CleanItem.ID.
type FingerprintSource int

const (
	FingerprintFromSourceID FingerprintSource = iota
	FingerprintFromURL
	FingerprintFromHash
)

// Fingerprint computes the deduplication key for a RawItem per §3: the
// first present origin id, else the URL, else an MD5 hash of
// "title_source". comment_id is checked before post_id, so a comment
// that also carries its parent's post_id keeps its own fingerprint.
func Fingerprint(r *RawItem) (value string, source FingerprintSource) {
	for _, id := range []string{r.ID, r.CommentID, r.PostID, r.TweetID, r.GUID, r.MessageID} {
		if id != "" {
			return id, FingerprintFromSourceID
		}
	}
	if r.URL != "" {
		return r.URL, FingerprintFromURL
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", r.Title, r.Source)))
	return hex.EncodeToString(sum[:]), FingerprintFromHash
}
