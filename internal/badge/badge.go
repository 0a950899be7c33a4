// Package badge renders award badges as SVG and uploads them to the object
// store. Rendering is deterministic: the same award always produces the same
// bytes, so concurrent re-renders converge on identical objects and URLs.
package badge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/canonjson"
	"github.com/hooplab/achievements-worker/internal/models"
)

// Issuer is stamped into every badge and upload.
const Issuer = "achievements-worker"

// Palette is the tier color scheme.
type Palette struct {
	Background string
	Accent     string
	Text       string
}

var palettes = map[string]Palette{
	"bronze":    {Background: "#2b1d12", Accent: "#cd7f32", Text: "#f5e7d6"},
	"silver":    {Background: "#1c1f24", Accent: "#c0c0c8", Text: "#f0f2f5"},
	"gold":      {Background: "#241c06", Accent: "#ffd700", Text: "#fdf6dc"},
	"platinum":  {Background: "#10191c", Accent: "#7fe5e0", Text: "#e8fbfa"},
	"legendary": {Background: "#1a0e24", Accent: "#b36bff", Text: "#f3e8ff"},
}

var neutralPalette = Palette{Background: "#14161a", Accent: "#8a93a3", Text: "#eceff3"}

// PaletteFor maps a free-text tier label to its palette, falling back to the
// neutral scheme for unknown tiers.
func PaletteFor(tier string) Palette {
	if p, ok := palettes[strings.ToLower(strings.TrimSpace(tier))]; ok {
		return p
	}
	return neutralPalette
}

// xmlEscape rewrites every character that could break out of an SVG text
// element. A malicious award title stays inert markup.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}

// Render produces the badge SVG for an award. Output is a pure function of
// the award fields.
func Render(award *models.Award) ([]byte, error) {
	p := PaletteFor(award.Tier)

	meta, err := canonjson.MarshalString(map[string]any{
		"award_id":   award.AwardID,
		"player_id":  award.PlayerID,
		"rule_id":    award.RuleID,
		"scope_key":  award.ScopeKey,
		"level":      award.Level,
		"title":      award.Title,
		"tier":       award.Tier,
		"awarded_at": award.AwardedAt.UTC().Format(time.RFC3339),
		"issuer":     Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("render badge metadata: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="600" height="400" viewBox="0 0 600 400">`)
	fmt.Fprintf(&b, `<metadata>%s</metadata>`, xmlEscape(meta))
	fmt.Fprintf(&b, `<rect width="600" height="400" rx="24" fill="%s"/>`, p.Background)
	fmt.Fprintf(&b, `<rect x="16" y="16" width="568" height="368" rx="16" fill="none" stroke="%s" stroke-width="3"/>`, p.Accent)
	fmt.Fprintf(&b, `<circle cx="300" cy="140" r="64" fill="none" stroke="%s" stroke-width="6"/>`, p.Accent)
	fmt.Fprintf(&b, `<path d="M268 140 l22 22 l42 -44" fill="none" stroke="%s" stroke-width="8" stroke-linecap="round" stroke-linejoin="round"/>`, p.Accent)
	fmt.Fprintf(&b, `<text x="300" y="252" text-anchor="middle" font-family="Georgia, serif" font-size="30" fill="%s">%s</text>`, p.Text, xmlEscape(award.Title))
	fmt.Fprintf(&b, `<text x="300" y="292" text-anchor="middle" font-family="Georgia, serif" font-size="20" fill="%s">%s</text>`, p.Accent, xmlEscape(award.Tier))
	fmt.Fprintf(&b, `<text x="300" y="340" text-anchor="middle" font-family="Georgia, serif" font-size="14" fill="%s">%s</text>`, p.Text, award.AwardedAt.UTC().Format("January 2, 2006"))
	fmt.Fprintf(&b, `<text x="300" y="368" text-anchor="middle" font-family="Georgia, serif" font-size="11" fill="%s">%s</text>`, p.Accent, xmlEscape(Issuer))
	b.WriteString(`</svg>`)

	return b.Bytes(), nil
}

// ObjectStore abstracts the S3-compatible blob sink. *minio.Client
// satisfies it.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Renderer renders badges and uploads them under badges/{player}/{award}.svg.
type Renderer struct {
	store         ObjectStore
	bucket        string
	publicBaseURL string
	logger        *zap.SugaredLogger
	now           func() time.Time
}

func NewRenderer(store ObjectStore, bucket, publicBaseURL string, logger *zap.SugaredLogger) *Renderer {
	return &Renderer{
		store:         store,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// ObjectKey is the stable key for an award's badge.
func ObjectKey(award *models.Award) string {
	return fmt.Sprintf("badges/%s/%s.svg", award.PlayerID, award.AwardID)
}

// GenerateAndUpload renders the badge and writes it to the object store,
// returning the public URL. The generated-at metadata rides on the upload,
// not in the blob body, so the body stays deterministic.
func (r *Renderer) GenerateAndUpload(ctx context.Context, award *models.Award) (string, error) {
	svg, err := Render(award)
	if err != nil {
		return "", err
	}

	key := ObjectKey(award)
	opts := minio.PutObjectOptions{
		ContentType:  "image/svg+xml",
		CacheControl: "public, max-age=31536000",
		UserMetadata: map[string]string{
			"generated-by": Issuer,
			"generated-at": r.now().UTC().Format(time.RFC3339),
		},
	}
	if _, err := r.store.PutObject(ctx, r.bucket, key, bytes.NewReader(svg), int64(len(svg)), opts); err != nil {
		return "", fmt.Errorf("upload badge %s: %w", key, err)
	}

	url := r.publicBaseURL + "/" + key
	r.logger.Infow("badge uploaded", "key", key, "award_id", award.AwardID, "bytes", len(svg))
	return url, nil
}
