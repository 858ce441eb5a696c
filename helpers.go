package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/streadway/amqp"

	"github.com/saisaket2004/ai-resume-analyzer/internal/extract"
)

// retry retries a function up to `attempts` times with linear backoff.
func retry[T any](attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		wait := time.Duration(500*(i+1)) * time.Millisecond
		time.Sleep(wait)
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// CleanJson strips markdown code fences the model sometimes wraps around its
// JSON output.
func CleanJson(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")

	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}

// --- Object storage ---

// NewR2Client builds an S3 client pointed at the Cloudflare R2 endpoint.
func NewR2Client(awsConfig *aws.Config, r2 *R2Config) *s3.Client {
	return s3.NewFromConfig(*awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
}

func DownloadFromR2(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

func UploadToR2(ctx context.Context, client *s3.Client, bucket, key, contentType string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

func resumeObjectKey(sessionID, resumeID, filename string) string {
	return fmt.Sprintf("resumes/%s/%s-%s", sessionID, resumeID, filename)
}

func reportObjectKey(sessionID string) string {
	return fmt.Sprintf("reports/%s.pdf", sessionID)
}

// resolveMime determines the effective MIME type of an upload. Content
// sniffing wins over the client-declared type; DOCX files sniff as zip
// archives, so the extension disambiguates those.
func resolveMime(filename string, data []byte) string {
	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, "application/pdf"):
		return extract.MimePDF
	case strings.HasPrefix(sniffed, "text/plain"):
		return extract.MimePlain
	case strings.HasPrefix(sniffed, "application/zip"):
		if strings.EqualFold(filepath.Ext(filename), ".docx") {
			return extract.MimeDocx
		}
	}
	return sniffed
}

// --- Messaging ---

// amqpChannel is the subset of *amqp.Channel the publish helpers use.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// publishAnalysisSession enqueues a session for the consumer workers.
func publishAnalysisSession(rabbitConn *amqp.Connection, session Session) error {
	ch, err := rabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return publishSessionOnChannel(ch, session)
}

func publishSessionOnChannel(ch amqpChannel, session Session) error {
	_, err := ch.QueueDeclare(
		analysesQueue, // queue name
		true,          // durable (survives broker restarts)
		false,         // auto-delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return ch.Publish(
		"",            // default exchange
		analysesQueue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func publishSessionUpdate(rabbitConn *amqp.Connection, sessionID string, update map[string]any) error {
	ch, err := rabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return publishUpdateOnChannel(ch, sessionID, update)
}

func publishUpdateOnChannel(ch amqpChannel, sessionID string, update map[string]any) error {
	// Nothing else owns the topology here, so the topic exchange must be
	// declared before the first publish or the broker closes the channel
	// with NOT_FOUND and the status event is silently lost.
	err := ch.ExchangeDeclare(
		sessionUpdatesExchange, // exchange name
		"topic",                // kind
		true,                   // durable
		false,                  // auto-delete
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, _ := json.Marshal(update)
	routingKey := fmt.Sprintf("session.%s", sessionID)

	return ch.Publish(
		sessionUpdatesExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
