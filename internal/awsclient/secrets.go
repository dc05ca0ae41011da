package awsclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// FetchSecretString retrieves a secret value from Secrets Manager. The secret
// may be a plain string or a JSON object; for JSON objects the value under
// jsonKey is returned. Environment-variable fallback is handled by the caller.
func FetchSecretString(ctx context.Context, client SecretsAPI, secretName, jsonKey string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretName,
	})
	if err != nil {
		return "", fmt.Errorf("get secret value %q: %w", secretName, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", secretName)
	}

	if jsonKey == "" {
		return *out.SecretString, nil
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", secretName, err)
	}
	value, ok := payload[jsonKey]
	if !ok {
		return "", fmt.Errorf("secret %q missing key %q", secretName, jsonKey)
	}
	return value, nil
}
