// Package drive implements the store on top of the Google Drive v3 API
package drive

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config/configmap"
	"github.com/rclone/drivedup/fs/config/configstruct"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/rclone/drivedup/fs/fshttp"
	"github.com/rclone/drivedup/lib/env"
	"github.com/rclone/drivedup/lib/oauthutil"
	"github.com/rclone/drivedup/lib/pacer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Constants
const (
	driveFolderType   = "application/vnd.google-apps.folder"
	googleAppsPrefix  = "application/vnd.google-apps."
	timeFormatOut     = "2006-01-02T15:04:05.000000000Z07:00"
	defaultMinSleep   = fs.Duration(100 * time.Millisecond)
	defaultBurst      = 100
	defaultListChunk  = 1000
	scopePrefix       = "https://www.googleapis.com/auth/"
	defaultScope      = "drive"
	partialFields     = "id,name,size,trashed,modifiedTime,createdTime,mimeType,parents"
	commentFields     = "id,author(displayName),content,anchor,deleted,quotedFileContent,replies(id,author(displayName),content,action,deleted)"
	newCommentFields  = "id,author(displayName),content,anchor,quotedFileContent"
	newReplyFields    = "id,author(displayName),content,action"
	defaultCommentMax = 100
)

// Globals
var (
	// Description of how to auth for this app
	driveConfig = &oauth2.Config{
		Scopes:   []string{scopePrefix + defaultScope},
		Endpoint: google.Endpoint,
	}
)

// Parse the scopes option returning a slice of scopes
func driveScopes(scopesString string) (scopes []string) {
	if scopesString == "" {
		scopesString = defaultScope
	}
	for _, scope := range strings.Split(scopesString, ",") {
		scope = strings.TrimSpace(scope)
		scopes = append(scopes, scopePrefix+scope)
	}
	return scopes
}

// OptionsInfo describes the options for the drive backend
var OptionsInfo = append(fs.Options{}, oauthutil.SharedOptions...)

func init() {
	OptionsInfo = append(OptionsInfo, fs.Options{{
		Name: "scope",
		Help: "Comma separated list of scopes to request, e.g. \"drive\" or \"drive.file\".",
	}, {
		Name: "root_folder_id",
		Help: "ID of the root folder.\n\nLeave blank normally.",
	}, {
		Name: "service_account_file",
		Help: "Service Account Credentials JSON file path.\n\nLeave blank normally. Needed only if you want use SA instead of a token.",
	}, {
		Name:     "service_account_credentials",
		Help:     "Service Account Credentials JSON blob.",
		Advanced: true,
	}, {
		Name:     "impersonate",
		Help:     "Impersonate this user when using a service account.",
		Advanced: true,
	}, {
		Name:     "team_drive",
		Help:     "ID of the Shared Drive (Team Drive) to work in.",
		Advanced: true,
	}, {
		Name:     "list_chunk",
		Default:  int64(defaultListChunk),
		Help:     "Size of listing chunk 100-1000, 0 to disable.",
		Advanced: true,
	}, {
		Name:     "keep_revision_forever",
		Default:  false,
		Help:     "Keep new head revision of each copied file forever.",
		Advanced: true,
	}, {
		Name:     "pacer_min_sleep",
		Default:  defaultMinSleep,
		Help:     "Minimum time to sleep between API calls.",
		Advanced: true,
	}, {
		Name:     "pacer_burst",
		Default:  defaultBurst,
		Help:     "Number of API calls to allow without sleeping.",
		Advanced: true,
	}}...)
}

// Options defines the configuration for this backend
type Options struct {
	Scope                     string      `config:"scope"`
	RootFolderID              string      `config:"root_folder_id"`
	ServiceAccountFile        string      `config:"service_account_file"`
	ServiceAccountCredentials string      `config:"service_account_credentials"`
	Impersonate               string      `config:"impersonate"`
	TeamDriveID               string      `config:"team_drive"`
	ListChunk                 int64       `config:"list_chunk"`
	KeepRevisionForever       bool        `config:"keep_revision_forever"`
	PacerMinSleep             fs.Duration `config:"pacer_min_sleep"`
	PacerBurst                int         `config:"pacer_burst"`
}

// Fs is an authenticated connection to a drive
type Fs struct {
	name        string         // name of the config section
	opt         Options        // parsed options
	svc         *drive.Service // the connection to the drive server
	rootID      string         // the id of the root folder
	isTeamDrive bool           // true if this is a team drive
}

// Check interface
var _ fs.Store = (*Fs)(nil)

// String converts this Fs to a string
func (f *Fs) String() string {
	return fmt.Sprintf("Google drive %q", f.name)
}

// retryAfterError is a retriable error for which the server asked
// for a back off
type retryAfterError struct {
	error
	retryAfter time.Duration
}

// RetryAfter returns the back off asked for
func (e retryAfterError) RetryAfter() time.Duration {
	return e.retryAfter
}

// Cause returns the underlying error
func (e retryAfterError) Cause() error {
	return e.error
}

// Unwrap returns the underlying error
func (e retryAfterError) Unwrap() error {
	return e.error
}

// Check interface
var _ pacer.RetryAfterError = retryAfterError{}

// parseRetryAfter reads a Retry-After header in seconds
func parseRetryAfter(header http.Header) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}
	value := header.Get("Retry-After")
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// classify marks err so the session knows what to do with it
//
//   - 401 needs a fresh token
//   - 5xx and rate limits are retried, honouring Retry-After
//   - anything else the server said is final
//
// Errors which never got a response, e.g. from the network, are
// returned as is for fserrors.ShouldRetry to judge.
func classify(err error) error {
	if err == nil {
		return nil
	}
	gerr, ok := err.(*googleapi.Error)
	if !ok {
		return err
	}
	if gerr.Code == http.StatusUnauthorized {
		return fserrors.AuthError(err)
	}
	retry := gerr.Code >= 500 && gerr.Code < 600 || gerr.Code == http.StatusTooManyRequests
	if len(gerr.Errors) > 0 {
		switch gerr.Errors[0].Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "backendError", "internalError":
			retry = true
		case "authError":
			return fserrors.AuthError(err)
		}
	}
	if !retry {
		return fserrors.NoRetryError(err)
	}
	if d, ok := parseRetryAfter(gerr.Header); ok {
		return fserrors.RetryError(retryAfterError{error: err, retryAfter: d})
	}
	return fserrors.RetryError(err)
}

// Auth makes authenticated connections to Google Drive
type Auth struct {
	name          string
	m             configmap.Mapper
	opt           Options
	client        *http.Client
	ts            *oauthutil.TokenSource
	clientOptions []option.ClientOption
}

// Check interface
var _ fs.Authenticator = (*Auth)(nil)

// NewAuth parses the options for the config section name out of m.
// Any clientOptions are passed to the drive client.
func NewAuth(name string, m configmap.Mapper, clientOptions ...option.ClientOption) (*Auth, error) {
	opt := new(Options)
	err := configstruct.Set(m, opt)
	if err != nil {
		return nil, err
	}
	if opt.ListChunk < 0 || opt.ListChunk > 1000 {
		return nil, errors.Errorf("drive: list_chunk must be between 0 and 1000, got %d", opt.ListChunk)
	}
	return &Auth{
		name:          name,
		m:             m,
		opt:           *opt,
		clientOptions: clientOptions,
	}, nil
}

// Calculator returns the pacing to use for this drive
func (a *Auth) Calculator() pacer.Calculator {
	return pacer.NewGoogleDrive(pacer.MinSleep(a.opt.PacerMinSleep), pacer.Burst(a.opt.PacerBurst))
}

func getServiceAccountClient(ctx context.Context, opt *Options, credentialsData []byte) (*http.Client, error) {
	scopes := driveScopes(opt.Scope)
	conf, err := google.JWTConfigFromJSON(credentialsData, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "error processing credentials")
	}
	if opt.Impersonate != "" {
		conf.Subject = opt.Impersonate
	}
	ctxWithSpecialClient := oauthutil.Context(ctx, fshttp.NewClient(ctx))
	return oauth2.NewClient(ctxWithSpecialClient, conf.TokenSource(ctxWithSpecialClient)), nil
}

// createOAuthClient makes the authorized client from the service
// account if there is one or the token in the config otherwise
func (a *Auth) createOAuthClient(ctx context.Context) (err error) {
	opt := &a.opt
	if len(opt.ServiceAccountCredentials) == 0 && opt.ServiceAccountFile != "" {
		loadedCreds, err := os.ReadFile(env.ShellExpand(opt.ServiceAccountFile))
		if err != nil {
			return errors.Wrap(err, "error opening service account credentials file")
		}
		opt.ServiceAccountCredentials = string(loadedCreds)
	}
	if opt.ServiceAccountCredentials != "" {
		a.client, err = getServiceAccountClient(ctx, opt, []byte(opt.ServiceAccountCredentials))
		if err != nil {
			return errors.Wrap(err, "failed to create oauth client from service account")
		}
		return nil
	}
	oauthConfig := *driveConfig
	oauthConfig.Scopes = driveScopes(opt.Scope)
	a.client, a.ts, err = oauthutil.NewClient(ctx, a.name, a.m, &oauthConfig)
	if err != nil {
		return errors.Wrap(err, "failed to create oauth client")
	}
	return nil
}

// Authenticate makes a new connection to the drive. Calls after the
// first force the access token to be refreshed.
func (a *Auth) Authenticate(ctx context.Context) (fs.Store, error) {
	if a.client == nil {
		if err := a.createOAuthClient(ctx); err != nil {
			return nil, fserrors.NoRetryError(err)
		}
	} else if a.ts != nil {
		fs.Debugf(a.name, "Refreshing access token")
		a.ts.Invalidate()
	}
	clientOptions := append([]option.ClientOption{option.WithHTTPClient(a.client)}, a.clientOptions...)
	svc, err := drive.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create Drive client")
	}
	return NewFs(ctx, a.name, svc, &a.opt)
}

// NewFs makes an Fs from a drive client, looking up the id of the
// root folder
func NewFs(ctx context.Context, name string, svc *drive.Service, opt *Options) (*Fs, error) {
	f := &Fs{
		name:        name,
		opt:         *opt,
		svc:         svc,
		isTeamDrive: opt.TeamDriveID != "",
	}
	switch {
	case opt.RootFolderID != "":
		f.rootID = opt.RootFolderID
	case f.isTeamDrive:
		f.rootID = opt.TeamDriveID
	default:
		// "root" is an alias so find the real id for comparing with parents
		info, err := f.svc.Files.Get("root").Fields("id").Context(ctx).Do()
		if err != nil {
			return nil, errors.Wrap(classify(err), "couldn't read root folder")
		}
		f.rootID = info.Id
	}
	fs.Debugf(f, "Root folder id %q", f.rootID)
	return f, nil
}

// RootID returns the id of the fixed root folder
func (f *Fs) RootID() string {
	return f.rootID
}

// escapeQuery quotes s for use in a drive search query
func escapeQuery(s string) string {
	// Escaping the backslash isn't documented but seems to work
	s = strings.Replace(s, `\`, `\\`, -1)
	return strings.Replace(s, `'`, `\'`, -1)
}

// buildQuery turns q into drive search syntax
//
// Search params: https://developers.google.com/drive/api/guides/search-files
func buildQuery(q fs.Query) string {
	query := []string{"trashed=false"}
	if q.ParentID != "" {
		query = append(query, fmt.Sprintf("'%s' in parents", escapeQuery(q.ParentID)))
	}
	if q.Name != "" {
		query = append(query, fmt.Sprintf("name='%s'", escapeQuery(q.Name)))
	}
	if q.FoldersOnly {
		query = append(query, fmt.Sprintf("mimeType='%s'", driveFolderType))
	}
	if q.FilesOnly {
		query = append(query, fmt.Sprintf("mimeType!='%s'", driveFolderType))
	}
	return strings.Join(query, " and ")
}

// parseTime reads a drive time returning the zero time if it can't
func parseTime(o interface{}, what, s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		fs.Debugf(o, "Failed to read %s %q: %v", what, s, err)
		return time.Time{}
	}
	return t
}

// toObject converts a drive file into an fs.Object
func toObject(item *drive.File) *fs.Object {
	o := &fs.Object{
		ID:       item.Id,
		Name:     item.Name,
		Kind:     fs.File,
		MimeType: item.MimeType,
		Parents:  append([]string(nil), item.Parents...),
		Size:     item.Size,
	}
	o.ModTime = parseTime(item.Name, "modification time", item.ModifiedTime)
	o.CreatedTime = parseTime(item.Name, "creation time", item.CreatedTime)
	if item.MimeType == driveFolderType {
		o.Kind = fs.Folder
	}
	// native documents and folders have no size
	if strings.HasPrefix(item.MimeType, googleAppsPrefix) {
		o.Size = fs.SizeUnknown
	}
	return o
}

// List returns one page of objects matching q
func (f *Fs) List(ctx context.Context, q fs.Query, pageToken string) (objects []*fs.Object, next string, err error) {
	list := f.svc.Files.List().
		Q(buildQuery(q)).
		Fields(googleapi.Field(fmt.Sprintf("files(%s),nextPageToken", partialFields))).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if f.opt.ListChunk > 0 {
		list.PageSize(f.opt.ListChunk)
	}
	if f.isTeamDrive {
		list.DriveId(f.opt.TeamDriveID)
		list.Corpora("drive")
	}
	if pageToken != "" {
		list.PageToken(pageToken)
	}
	files, err := list.Do()
	if err != nil {
		return nil, "", errors.Wrap(classify(err), "couldn't list")
	}
	for _, item := range files.Files {
		// the name operator is case insensitive
		if q.Name != "" && item.Name != q.Name {
			continue
		}
		if q.Orphans && len(item.Parents) != 0 {
			continue
		}
		if item.Id == f.rootID || item.Trashed {
			continue
		}
		objects = append(objects, toObject(item))
	}
	return objects, files.NextPageToken, nil
}

// Get reads the object with the id given
func (f *Fs) Get(ctx context.Context, id string) (*fs.Object, error) {
	info, err := f.svc.Files.Get(id).
		Fields(partialFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't read %q", id)
	}
	return toObject(info), nil
}

// CreateFolder makes a new folder called name in parentID
func (f *Fs) CreateFolder(ctx context.Context, parentID, name string) (*fs.Object, error) {
	createInfo := &drive.File{
		Name:     name,
		MimeType: driveFolderType,
		Parents:  []string{parentID},
	}
	info, err := f.svc.Files.Create(createInfo).
		Fields(partialFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't create folder %q", name)
	}
	return toObject(info), nil
}

// Copy duplicates srcID into dstParentID calling it name
func (f *Fs) Copy(ctx context.Context, srcID, dstParentID, name string) (*fs.Object, error) {
	createInfo := &drive.File{
		Name:    name,
		Parents: []string{dstParentID},
	}
	info, err := f.svc.Files.Copy(srcID, createInfo).
		Fields(partialFields).
		SupportsAllDrives(true).
		KeepRevisionForever(f.opt.KeepRevisionForever).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't copy %q", name)
	}
	return toObject(info), nil
}

// SetModTime sets the modification time of id
func (f *Fs) SetModTime(ctx context.Context, id string, modTime time.Time) (*fs.Object, error) {
	updateInfo := &drive.File{
		ModifiedTime: modTime.Format(timeFormatOut),
	}
	info, err := f.svc.Files.Update(id, updateInfo).
		Fields(partialFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(classify(err), "couldn't set modification time of %q", id)
	}
	return toObject(info), nil
}
