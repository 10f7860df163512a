package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/metadata"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Generator GeneratorConfig   `yaml:"generator"`
	Output    OutputConfig      `yaml:"output"`
	Content   ContentConfig     `yaml:"content"`
	Chain     ChainConfig       `yaml:"chain"`
	Ledger    LedgerConfig      `yaml:"ledger"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, section := range []validation.Validatable{
		&c.App, &c.Generator, &c.Output, &c.Content, &c.Chain, &c.Ledger, &c.Auth,
	} {
		if err := section.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GeneratorConfig controls trait loading, selection and record naming.
//
// FirstItemID is the id of the first generated item; later items count up
// from it. A zero Seed draws from a random source.
type GeneratorConfig struct {
	TraitsDir   string `yaml:"traits_dir"`
	Count       int    `yaml:"count"`
	FirstItemID int    `yaml:"first_item_id"`
	ImageWidth  int    `yaml:"image_width"`
	Extension   string `yaml:"extension"`
	Strategy    string `yaml:"strategy"`
	LabelTrait  string `yaml:"label_trait"`
	Seed        uint64 `yaml:"seed"`
}

// Validate validates the generator configuration.
func (c *GeneratorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TraitsDir, validation.Required),
		validation.Field(&c.Count, validation.Min(0)),
		validation.Field(&c.FirstItemID, validation.Min(0)),
		validation.Field(&c.ImageWidth, validation.Min(0)),
		validation.Field(&c.Extension, validation.Required),
		validation.Field(&c.Strategy, validation.In(metadata.StrategyMock, metadata.StrategyThemed)),
		validation.Field(&c.LabelTrait, validation.When(c.Strategy == metadata.StrategyThemed, validation.Required)),
	)
}

// OutputConfig holds the generated artifact directories.
type OutputConfig struct {
	MetadataDir string `yaml:"metadata_dir"`
	ImageDir    string `yaml:"image_dir"`
	Wipe        bool   `yaml:"wipe"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MetadataDir, validation.Required),
		validation.Field(&c.ImageDir, validation.Required),
	); err != nil {
		return err
	}
	if c.MetadataDir == c.ImageDir {
		return fmt.Errorf("output: metadata_dir and image_dir must differ")
	}
	return nil
}

// ContentConfig selects the content-addressed store.
type ContentConfig struct {
	Mode         string `yaml:"mode"`
	APIURL       string `yaml:"api_url"`
	BlobDir      string `yaml:"blob_dir"`
	UploadImages bool   `yaml:"upload_images"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(contentstore.ModeMock, contentstore.ModeHTTP)),
		validation.Field(&c.APIURL, validation.When(c.Mode == contentstore.ModeHTTP, validation.Required)),
	)
}

// ChainConfig selects and configures the chain client.
//
// Mode controls where submissions go:
//   - "journal" (default): signed calls appended to the ledger database.
//     SignerKey is a hex secp256k1 key; empty generates one per process.
//   - "hedera": consensus topic messages; the operator fields are required,
//     and so is TopicID unless CreateCollection is set.
type ChainConfig struct {
	Mode              string `yaml:"mode"`
	CollectionID      uint32 `yaml:"collection_id"`
	CreateCollection  bool   `yaml:"create_collection"`
	BatchAttributes   bool   `yaml:"batch_attributes"`
	Network           string `yaml:"network"`
	TopicID           string `yaml:"topic_id"`
	OperatorAccountID string `yaml:"operator_account_id"`
	OperatorKey       string `yaml:"operator_key"`
	SignerKey         string `yaml:"signer_key"`
}

// Validate validates the chain configuration.
func (c *ChainConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = chain.ModeJournal
	}
	hedera := c.Mode == chain.ModeHedera
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(chain.ModeJournal, chain.ModeHedera)),
		validation.Field(&c.Network, validation.In(chain.NetworkMainnet, chain.NetworkTestnet, chain.NetworkPreviewnet)),
		validation.Field(&c.OperatorAccountID, validation.When(hedera, validation.Required)),
		validation.Field(&c.OperatorKey, validation.When(hedera, validation.Required)),
		// Without a fixed topic every collection lives on a topic the
		// minter creates and records in the ledger.
		validation.Field(&c.TopicID, validation.When(hedera && !c.CreateCollection,
			validation.Required.Error("is required unless create_collection is set"))),
	)
}

// LedgerConfig holds SQLite ledger configuration.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds read API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// BearerToken returns the token the API must check, empty when auth is off.
func (c *AuthConfig) BearerToken() string {
	if c.Mode == AuthModeToken {
		return c.Token
	}
	return ""
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Generator: GeneratorConfig{
			TraitsDir:  "./traits",
			Count:      10,
			Extension:  "*.png",
			Strategy:   metadata.StrategyMock,
			LabelTrait: "label",
		},
		Output: OutputConfig{
			MetadataDir: "./out/metadata",
			ImageDir:    "./out/images",
			Wipe:        true,
		},
		Content: ContentConfig{
			Mode:         contentstore.ModeMock,
			APIURL:       "http://127.0.0.1:5001",
			BlobDir:      "./out/blobs",
			UploadImages: true,
		},
		Chain: ChainConfig{
			Mode:            chain.ModeJournal,
			CollectionID:    1,
			BatchAttributes: true,
			Network:         chain.NetworkTestnet,
		},
		Ledger: LedgerConfig{
			Path: "./brewmint.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
