package http

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Response message keys. English text doubles as the key and the fallback.
const (
	msgForbidden         = "You do not have permission to perform this action."
	msgNotFound          = "The requested resource was not found."
	msgValidation        = "The request contains invalid values."
	msgInvalidTime       = "The start time is not a valid date and time."
	msgPastTime          = "The start time is in the past."
	msgConflict          = "Occurrence %d conflicts with an existing session."
	msgInvalidTransition = "The session cannot change to the requested state."
	msgInternal          = "An internal server error occurred."
	msgBadRequest        = "The request body is malformed."
	msgActorRequired     = "The X-Actor-ID header is required."
	msgInvalidSessionID  = "The session ID is invalid."
	msgInvalidQuery      = "The query parameter %s is invalid."
	msgStreaming         = "Streaming is not supported by this connection."
)

var japaneseMessages = map[string]string{
	msgForbidden:         "この操作を実行する権限がありません。",
	msgNotFound:          "指定されたリソースが見つかりません。",
	msgValidation:        "入力内容に誤りがあります。",
	msgInvalidTime:       "開始日時が正しい日時ではありません。",
	msgPastTime:          "開始日時が過去です。",
	msgConflict:          "%d 回目の予定が既存のセッションと重複しています。",
	msgInvalidTransition: "セッションを指定された状態に変更できません。",
	msgInternal:          "サーバー内部でエラーが発生しました。",
	msgBadRequest:        "無効なリクエスト形式です。",
	msgActorRequired:     "X-Actor-ID ヘッダーを指定してください。",
	msgInvalidSessionID:  "無効なセッション ID です。",
	msgInvalidQuery:      "クエリパラメータ %s が不正です。",
	msgStreaming:         "この接続ではストリーミングを利用できません。",

	"duration must be positive":             "所要時間は正の整数で指定してください。",
	"at least one participant is required":  "少なくとも 1 名の参加者を指定してください。",
	"participant needs a user id or email":  "参加者にはユーザー ID またはメールアドレスが必要です。",
	"step must not be negative":             "刻み幅は 0 以上で指定してください。",
	"date is not a calendar date":           "存在しない日付です。",
	"duration does not fit in the day":      "所要時間が 1 日に収まりません。",
	"to must be after from":                 "終了は開始より後である必要があります。",
	"session violates a storage constraint": "セッションが保存条件を満たしていません。",
	"only the host can start the meeting":   "会議を開始できるのはホストのみです。",
	"only the host can end the meeting":     "会議を終了できるのはホストのみです。",
	"meeting has already started":           "会議はすでに開始されています。",
	"meeting is not live":                   "会議は進行中ではありません。",
	"meeting has no recorded start":         "会議の開始記録がありません。",
	"meeting state changed concurrently":    "会議の状態が同時に変更されました。",
	"session was changed concurrently":      "セッションが同時に変更されました。",
	"session is cancelled":                  "セッションはキャンセル済みです。",
	"session is already cancelled":          "セッションはすでにキャンセルされています。",
	"meeting is live":                       "会議は進行中です。",
	"meeting has ended":                     "会議は終了しています。",
}

var supportedLanguages = []language.Tag{language.English, language.Japanese}

var languageMatcher = language.NewMatcher(supportedLanguages)

// newCatalog registers the response messages for every supported language.
func newCatalog() (catalog.Catalog, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, ja := range japaneseMessages {
		if err := builder.SetString(language.English, key, key); err != nil {
			return nil, err
		}
		if err := builder.SetString(language.Japanese, key, ja); err != nil {
			return nil, err
		}
	}
	return builder, nil
}

// resolveLanguage picks the response language from the lang query parameter,
// then Accept-Language, then English.
func resolveLanguage(r *http.Request) language.Tag {
	if r == nil {
		return language.English
	}
	var preferred []language.Tag
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			preferred = append(preferred, tag)
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			preferred = append(preferred, tags...)
		}
	}
	if len(preferred) == 0 {
		return language.English
	}
	_, index, confidence := languageMatcher.Match(preferred...)
	if confidence == language.No {
		return language.English
	}
	return supportedLanguages[index]
}

type printerContextKey struct{}

// Localize attaches a message printer for the negotiated language to the request context.
func Localize(cat catalog.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := resolveLanguage(r)
			printer := message.NewPrinter(tag, message.Catalog(cat))
			w.Header().Set("Content-Language", tag.String())
			ctx := context.WithValue(r.Context(), printerContextKey{}, printer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func printerFromContext(ctx context.Context) *message.Printer {
	if printer, ok := ctx.Value(printerContextKey{}).(*message.Printer); ok {
		return printer
	}
	return message.NewPrinter(language.English)
}

// translate renders a free-form message through the catalog. Text that could
// be read as a format string is returned untouched.
func translate(printer *message.Printer, text string) string {
	if strings.Contains(text, "%") {
		return text
	}
	return printer.Sprintf(text)
}
