package types

import "time"

// QueryType enumerates the DNS record types Burrow keeps separate tallies for.
// Everything not in this list is counted as TypeOther.
type QueryType int

const (
	TypeA QueryType = iota
	TypeAAAA
	TypeANY
	TypeSRV
	TypeSOA
	TypePTR
	TypeTXT
	TypeNAPTR
	TypeMX
	TypeDS
	TypeRRSIG
	TypeDNSKEY
	TypeNS
	TypeSVCB
	TypeHTTPS
	TypeOther
	// TypeMax is the number of query types (array sizing, not a valid type)
	TypeMax
)

var queryTypeNames = [TypeMax]string{
	"A", "AAAA", "ANY", "SRV", "SOA", "PTR", "TXT", "NAPTR", "MX",
	"DS", "RRSIG", "DNSKEY", "NS", "SVCB", "HTTPS", "OTHER",
}

func (t QueryType) String() string {
	if t < 0 || t >= TypeMax {
		return "INVALID"
	}
	return queryTypeNames[t]
}

// QueryStatus enumerates the outcome of a query as seen by the resolver.
type QueryStatus int

const (
	StatusUnknown QueryStatus = iota
	StatusBlocklist
	StatusForwarded
	StatusCache
	StatusRegex
	StatusDenylist
	StatusExternalBlockedIP
	StatusExternalBlockedNull
	StatusExternalBlockedNXRA
	StatusBlocklistCNAME
	StatusRegexCNAME
	StatusDenylistCNAME
	StatusRetried
	StatusRetriedDNSSEC
	StatusInProgress
	StatusDBBusy
	StatusSpecialDomain
	StatusCacheStale
	// StatusMax is the number of query statuses (array sizing, not a valid status)
	StatusMax
)

var queryStatusNames = [StatusMax]string{
	"UNKNOWN", "BLOCKLIST", "FORWARDED", "CACHE", "REGEX", "DENYLIST",
	"EXTERNAL_BLOCKED_IP", "EXTERNAL_BLOCKED_NULL", "EXTERNAL_BLOCKED_NXRA",
	"BLOCKLIST_CNAME", "REGEX_CNAME", "DENYLIST_CNAME", "RETRIED",
	"RETRIED_DNSSEC", "IN_PROGRESS", "DBBUSY", "SPECIAL_DOMAIN", "CACHE_STALE",
}

func (s QueryStatus) String() string {
	if s < 0 || s >= StatusMax {
		return "INVALID"
	}
	return queryStatusNames[s]
}

// blockedStatus maps each status to whether the query contributed to the
// blocked tallies. This table is the single source of truth for both the
// ingest path and eviction, so the two always agree.
var blockedStatus = [StatusMax]bool{
	StatusBlocklist:           true,
	StatusRegex:               true,
	StatusDenylist:            true,
	StatusExternalBlockedIP:   true,
	StatusExternalBlockedNull: true,
	StatusExternalBlockedNXRA: true,
	StatusBlocklistCNAME:      true,
	StatusRegexCNAME:          true,
	StatusDenylistCNAME:       true,
	StatusDBBusy:              true,
	StatusSpecialDomain:       true,
}

// Blocked reports whether a query with this status counts as blocked.
func (s QueryStatus) Blocked() bool {
	if s < 0 || s >= StatusMax {
		return false
	}
	return blockedStatus[s]
}

// ReplyType enumerates the kind of answer the client received.
type ReplyType int

const (
	ReplyUnknown ReplyType = iota
	ReplyNODATA
	ReplyNXDOMAIN
	ReplyCNAME
	ReplyIP
	ReplyDOMAIN
	ReplyRRNAME
	ReplySERVFAIL
	ReplyREFUSED
	ReplyNOTIMP
	ReplyDNSSEC
	ReplyNONE
	ReplyBLOB
	ReplyOther
	// ReplyMax is the number of reply types (array sizing, not a valid reply)
	ReplyMax
)

var replyTypeNames = [ReplyMax]string{
	"UNKNOWN", "NODATA", "NXDOMAIN", "CNAME", "IP", "DOMAIN", "RRNAME",
	"SERVFAIL", "REFUSED", "NOTIMP", "DNSSEC", "NONE", "BLOB", "OTHER",
}

func (r ReplyType) String() string {
	if r < 0 || r >= ReplyMax {
		return "INVALID"
	}
	return replyTypeNames[r]
}

// Query is one record in the shared arena. It is immutable after ingest
// except for Status, which only the retention engine resets (to
// StatusUnknown) immediately before eviction.
type Query struct {
	// ID is assigned at append time and strictly increases over the
	// lifetime of the process. It survives compaction, unlike the arena
	// index, so the on-disk archive keys records by it.
	ID        uint64      `json:"id"`
	Timestamp int64       `json:"timestamp"` // Unix seconds
	Type      QueryType   `json:"type"`
	Status    QueryStatus `json:"status"`
	Reply     ReplyType   `json:"reply"`
	ClientID  int         `json:"client_id"`
	DomainID  int         `json:"domain_id"`
}

// Client is a per-client aggregate. Clients are never removed from the
// arena; only the rolling counts are decremented on eviction.
type Client struct {
	IP           string
	Count        int
	BlockedCount int

	// RateLimit counts queries in the current rate-limiting interval and
	// is zeroed by the rate-limit reconciler on every interval boundary.
	RateLimit   uint
	RateLimited bool
}

// Domain is a per-domain aggregate with the same permanence contract as
// Client.
type Domain struct {
	Name         string
	Count        int
	BlockedCount int
}

// Message is a persisted operator-facing notice, e.g. a resource shortage.
type Message struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text"`
}

// MessageType tags persisted messages
type MessageType string

const (
	MessageDiskShortage MessageType = "DISK_SHORTAGE"
	MessageLoadShortage MessageType = "LOAD_SHORTAGE"
)
