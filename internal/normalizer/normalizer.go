package normalizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
)

// Normalizer reduces input files to the canonical text that gets diffed.
type Normalizer struct {
	logger  zerolog.Logger
	maxSize int64
}

// NewNormalizer creates a normalizer enforcing the configured size limit
func NewNormalizer(cfg config.ParserConfig, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger:  logger.With().Str("component", "Normalizer").Logger(),
		maxSize: cfg.MaxFileSizeBytes(),
	}
}

// ParseFile detects the kind of name and normalizes data accordingly.
// Malformed JSON, YAML and XML are downgraded to plain text and never fail.
// Spreadsheets, documents and PDFs that cannot be decoded return a
// *common.ContainerDecodeError.
func (n *Normalizer) ParseFile(ctx context.Context, name string, data []byte) (models.ParsedInput, error) {
	return n.ParseAs(ctx, DetectKind(name), name, data)
}

// ParseAs normalizes data as the given kind, skipping detection.
func (n *Normalizer) ParseAs(ctx context.Context, kind models.FormatKind, name string, data []byte) (models.ParsedInput, error) {
	if n.maxSize > 0 && int64(len(data)) > n.maxSize {
		return models.ParsedInput{}, common.NewValidationError("file", name, "file exceeds the maximum allowed size")
	}
	if err := ctx.Err(); err != nil {
		return models.ParsedInput{}, err
	}

	base := models.ParsedInput{Kind: kind, Name: name, Size: int64(len(data))}

	switch {
	case !kind.IsTextExtractable():
		return base, nil
	case kind.IsBinaryContainer():
		text, err := n.decodeContainer(ctx, kind, data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.ParsedInput{}, ctxErr
			}
			decodeErr := common.NewContainerDecodeError(string(kind), name, err)
			n.logger.Debug().Err(decodeErr).Msg("Container decode failed")
			return models.ParsedInput{}, decodeErr
		}
		base.Text = text
		return base, nil
	default:
		return n.normalizeText(base, decodeText(data)), nil
	}
}

func (n *Normalizer) decodeContainer(ctx context.Context, kind models.FormatKind, data []byte) (string, error) {
	switch kind {
	case models.KindSpreadsheet:
		return decodeSpreadsheet(data)
	case models.KindDocument:
		return decodeDocument(data)
	default:
		return decodePDF(ctx, data)
	}
}

// normalizeText has no error path: structured kinds that fail to parse fall
// back to kind text carrying the raw content.
func (n *Normalizer) normalizeText(base models.ParsedInput, raw string) models.ParsedInput {
	var parse func(string) (*Value, error)
	switch base.Kind {
	case models.KindJSON:
		parse = ParseLenientJSON
	case models.KindYAML:
		parse = ParseYAML
	case models.KindXML:
		parse = ParseXML
	default:
		base.Text = raw
		return base
	}

	v, err := parse(raw)
	if err != nil {
		parseErr := &common.FormatParseError{Kind: string(base.Kind), Err: err}
		n.logger.Warn().Err(parseErr).Str("file", base.Name).Msg("Structured parse failed, comparing as plain text")
		base.Kind = models.KindText
		base.Text = raw
		return base
	}

	base.Text = StableStringify(v)
	return base
}

// decodeText reads data as UTF-8, dropping a leading byte order mark and
// replacing invalid sequences.
func decodeText(data []byte) string {
	s := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return s
}
