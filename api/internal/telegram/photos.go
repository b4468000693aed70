package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lab-interpreter/api/internal/extract"
)

func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	ph := msg.Photo[len(msg.Photo)-1]
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.SendError(cid, err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	imgBytes, err := download(url)
	if err != nil {
		r.SendError(cid, err)
		return
	}

	r.send(cid, "Got the report, reading it…")
	disease := strings.TrimSpace(msg.Caption)

	go r.processPhoto(cid, imgBytes, disease)
}

func (r *Router) processPhoto(chatID int64, img []byte, disease string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
	defer cancel()

	rec, err := r.Extractor.Extract(ctx, img)
	if err != nil {
		if errors.Is(err, extract.ErrExtractionFailed) {
			r.send(chatID, "I could not read this image as a lab report. Try a sharper photo taken straight on.")
			return
		}
		r.SendError(chatID, err)
		return
	}

	r.SendResult(chatID, "📋 Here is what I read:\n\n"+rec.Text())

	res, err := r.Interpreter.Interpret(ctx, rec.TestName, rec.Text(), disease)
	if err != nil {
		log.Printf("interpret chat=%d test=%q: %v", chatID, rec.TestName, err)
		r.send(chatID, "I read the report but could not gather enough context to explain it. Please try again later.")
		return
	}
	r.SendResult(chatID, res.Text)
}

func download(url string) ([]byte, error) {
	resp, err := httpClient().Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
