package storeadapter

import "encoding/json"

// CredentialsBlob is the shape serialized into App.Credentials. Exactly one of Apple/Google is populated,
// depending on the owning App's platform.
type CredentialsBlob struct {
	Apple  *AppleCredentials  `json:"apple,omitempty"`
	Google *GoogleCredentials `json:"google,omitempty"`
}

// AppleCredentials authenticates App Store Server API and Catalog API
// calls.
type AppleCredentials struct {
	IssuerID   string `json:"issuer_id"`
	KeyID      string `json:"key_id"`
	PrivateKey string `json:"private_key"`
	BundleID   string `json:"bundle_id"`
}

// GoogleCredentials authenticates androidpublisher calls via a
// service-account JSON blob.
type GoogleCredentials struct {
	PackageName        string `json:"package_name"`
	ServiceAccountJSON  string `json:"service_account_json"`
}

// Masked returns a copy with private-key material replaced by the literal
// "***configured***", per GET /v1/apps/{id}/credentials. Private
// key material must never appear in a response body.
func (c CredentialsBlob) Masked() CredentialsBlob {
	masked := c
	if c.Apple != nil {
		apple := *c.Apple
		apple.PrivateKey = "***configured***"
		masked.Apple = &apple
	}
	if c.Google != nil {
		google := *c.Google
		google.ServiceAccountJSON = "***configured***"
		masked.Google = &google
	}
	return masked
}

func Parse(raw string) (CredentialsBlob, error) {
	var blob CredentialsBlob
	if raw == "" {
		return blob, nil
	}
	err := json.Unmarshal([]byte(raw), &blob)
	return blob, err
}

func (c CredentialsBlob) Marshal() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
