package config

import (
	"net/url"
	"slices"
)

// Configuration is the validated deployment configuration. Values returned by
// FromMap, the loaders and the Registry must be treated as read-only.
type Configuration struct {
	// Cloud Storage buckets.
	PackageBucketName        string
	DartdocStorageBucketName string
	PopularityDumpBucketName string
	SearchSnapshotBucketName string
	BackupSnapshotBucketName string

	// SearchServicePrefix is the scheme, host and port of the search service.
	SearchServicePrefix string
	StorageBaseURL      string

	// OAuth audiences. An empty audience disables the feature depending on it.
	PubClientAudience string
	PubSiteAudience   string
	AdminAudience     string

	// Outbound email is disabled unless both relay identities are set.
	GmailRelayServiceAccount         string
	GmailRelayImpersonatedGSuiteUser string

	UploadSignerServiceAccount string

	BlockRobots     bool
	ProductionHosts []string

	PrimaryAPIURI  *url.URL
	PrimarySiteURI *url.URL

	Admins []AdminID
}

const (
	keyPackageBucketName                = "packageBucketName"
	keyDartdocStorageBucketName         = "dartdocStorageBucketName"
	keyPopularityDumpBucketName         = "popularityDumpBucketName"
	keySearchSnapshotBucketName         = "searchSnapshotBucketName"
	keyBackupSnapshotBucketName         = "backupSnapshotBucketName"
	keySearchServicePrefix              = "searchServicePrefix"
	keyStorageBaseURL                   = "storageBaseUrl"
	keyPubClientAudience                = "pubClientAudience"
	keyPubSiteAudience                  = "pubSiteAudience"
	keyAdminAudience                    = "adminAudience"
	keyGmailRelayServiceAccount         = "gmailRelayServiceAccount"
	keyGmailRelayImpersonatedGSuiteUser = "gmailRelayImpersonatedGSuiteUser"
	keyUploadSignerServiceAccount       = "uploadSignerServiceAccount"
	keyBlockRobots                      = "blockRobots"
	keyProductionHosts                  = "productionHosts"
	keyPrimaryAPIURI                    = "primaryApiUri"
	keyPrimarySiteURI                   = "primarySiteUri"
	keyAdmins                           = "admins"

	keyOAuthUserID = "oauthUserId"
	keyEmail       = "email"
	keyPermissions = "permissions"
)

var configurationFields = []fieldSpec{
	{keyPackageBucketName, true},
	{keyDartdocStorageBucketName, true},
	{keyPopularityDumpBucketName, true},
	{keySearchSnapshotBucketName, true},
	{keyBackupSnapshotBucketName, true},
	{keySearchServicePrefix, true},
	{keyStorageBaseURL, true},
	{keyPubClientAudience, false},
	{keyPubSiteAudience, false},
	{keyAdminAudience, false},
	{keyGmailRelayServiceAccount, false},
	{keyGmailRelayImpersonatedGSuiteUser, false},
	{keyUploadSignerServiceAccount, false},
	{keyBlockRobots, true},
	{keyProductionHosts, true},
	{keyPrimaryAPIURI, true},
	{keyPrimarySiteURI, true},
	{keyAdmins, true},
}

var adminFields = []fieldSpec{
	{keyOAuthUserID, true},
	{keyEmail, true},
	{keyPermissions, true},
}

// FromMap decodes a generic mapping, as produced by a YAML or JSON decoder,
// into a Configuration. Unknown keys, missing required keys and values of
// the wrong type are reported as SchemaErrors naming the field path. Empty
// lists decode to nil slices.
func FromMap(data map[string]any) (*Configuration, error) {
	if err := checkKeys("", data, configurationFields); err != nil {
		return nil, err
	}

	r := newRecord("", data)
	cfg := &Configuration{
		PackageBucketName:                r.str(keyPackageBucketName),
		DartdocStorageBucketName:         r.str(keyDartdocStorageBucketName),
		PopularityDumpBucketName:         r.str(keyPopularityDumpBucketName),
		SearchSnapshotBucketName:         r.str(keySearchSnapshotBucketName),
		BackupSnapshotBucketName:         r.str(keyBackupSnapshotBucketName),
		SearchServicePrefix:              r.urlString(keySearchServicePrefix),
		StorageBaseURL:                   r.urlString(keyStorageBaseURL),
		PubClientAudience:                r.optionalStr(keyPubClientAudience),
		PubSiteAudience:                  r.optionalStr(keyPubSiteAudience),
		AdminAudience:                    r.optionalStr(keyAdminAudience),
		GmailRelayServiceAccount:         r.optionalStr(keyGmailRelayServiceAccount),
		GmailRelayImpersonatedGSuiteUser: r.optionalStr(keyGmailRelayImpersonatedGSuiteUser),
		UploadSignerServiceAccount:       r.optionalStr(keyUploadSignerServiceAccount),
		BlockRobots:                      r.boolean(keyBlockRobots),
		ProductionHosts:                  r.strList(keyProductionHosts),
		PrimaryAPIURI:                    r.uri(keyPrimaryAPIURI),
		PrimarySiteURI:                   r.uri(keyPrimarySiteURI),
		Admins:                           decodeAdmins(r, keyAdmins),
	}
	if err := r.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeAdmins(r *record, key string) []AdminID {
	items := r.list(key)
	if len(items) == 0 {
		return nil
	}
	admins := make([]AdminID, 0, len(items))
	for i, item := range items {
		path := indexPath(r.at(key), i)
		m, ok := item.(map[string]any)
		if !ok {
			r.fail(typeError(path, "mapping", item))
			continue
		}
		admin, err := decodeAdmin(path, m)
		if err != nil {
			r.fail(err)
			continue
		}
		admins = append(admins, admin)
	}
	return admins
}

func decodeAdmin(path string, data map[string]any) (AdminID, error) {
	if err := checkKeys(path, data, adminFields); err != nil {
		return AdminID{}, err
	}

	r := newRecord(path, data)
	id := r.str(keyOAuthUserID)
	email := r.str(keyEmail)
	tags := r.strList(keyPermissions)

	perms := make([]AdminPermission, 0, len(tags))
	for i, tag := range tags {
		p, ok := ParseAdminPermission(tag)
		if !ok {
			r.fail(schemaErrorf(indexPath(r.at(keyPermissions), i), "unknown permission %q", tag))
			continue
		}
		perms = append(perms, p)
	}
	if err := r.err(); err != nil {
		return AdminID{}, err
	}
	return NewAdminID(id, email, perms), nil
}

// ToMap returns the serialized form of c. Unset optional fields are omitted
// and nil slices are written as empty lists. FromMap(c.ToMap()) yields a value
// equal to c as long as c holds no empty, non-nil slices.
func (c *Configuration) ToMap() map[string]any {
	out := map[string]any{
		keyPackageBucketName:        c.PackageBucketName,
		keyDartdocStorageBucketName: c.DartdocStorageBucketName,
		keyPopularityDumpBucketName: c.PopularityDumpBucketName,
		keySearchSnapshotBucketName: c.SearchSnapshotBucketName,
		keyBackupSnapshotBucketName: c.BackupSnapshotBucketName,
		keySearchServicePrefix:      c.SearchServicePrefix,
		keyStorageBaseURL:           c.StorageBaseURL,
		keyBlockRobots:              c.BlockRobots,
		keyPrimaryAPIURI:            uriString(c.PrimaryAPIURI),
		keyPrimarySiteURI:           uriString(c.PrimarySiteURI),
	}

	optional := map[string]string{
		keyPubClientAudience:                c.PubClientAudience,
		keyPubSiteAudience:                  c.PubSiteAudience,
		keyAdminAudience:                    c.AdminAudience,
		keyGmailRelayServiceAccount:         c.GmailRelayServiceAccount,
		keyGmailRelayImpersonatedGSuiteUser: c.GmailRelayImpersonatedGSuiteUser,
		keyUploadSignerServiceAccount:       c.UploadSignerServiceAccount,
	}
	for k, v := range optional {
		if v != "" {
			out[k] = v
		}
	}

	hosts := make([]any, len(c.ProductionHosts))
	for i, h := range c.ProductionHosts {
		hosts[i] = h
	}
	out[keyProductionHosts] = hosts

	admins := make([]any, len(c.Admins))
	for i, a := range c.Admins {
		admins[i] = a.toMap()
	}
	out[keyAdmins] = admins

	return out
}

// EmailSenderEnabled reports whether both Gmail relay identities are set.
func (c *Configuration) EmailSenderEnabled() bool {
	return c.GmailRelayServiceAccount != "" && c.GmailRelayImpersonatedGSuiteUser != ""
}

// IsProductionHost reports whether host is listed in ProductionHosts.
func (c *Configuration) IsProductionHost(host string) bool {
	return slices.Contains(c.ProductionHosts, host)
}

// AdminByOAuthUserID looks up an administrator by external identity.
func (c *Configuration) AdminByOAuthUserID(oauthUserID string) (AdminID, bool) {
	for _, a := range c.Admins {
		if a.OAuthUserID == oauthUserID {
			return a, true
		}
	}
	return AdminID{}, false
}

// HasAdminPermission reports whether the administrator with oauthUserID holds p.
func (c *Configuration) HasAdminPermission(oauthUserID string, p AdminPermission) bool {
	a, ok := c.AdminByOAuthUserID(oauthUserID)
	return ok && a.Has(p)
}

// APIURL returns PrimaryAPIURI as text, or "" when it is unset.
func (c *Configuration) APIURL() string {
	return uriString(c.PrimaryAPIURI)
}

// SiteURL returns PrimarySiteURI as text, or "" when it is unset.
func (c *Configuration) SiteURL() string {
	return uriString(c.PrimarySiteURI)
}

func uriString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
