package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.RootPromptText = "what is your favorite comfort show?"
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.Policy = "guesswork"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown normalize.policy")
	}
}

func TestValidateRequiresCatalogEndpointForCatalogPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.Policy = "catalog"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when catalog policy has no endpoint")
	}
	cfg.Normalize.CatalogEndpoint = "https://catalog.example.com/validate"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config once endpoint set, got: %v", err)
	}
}

func TestValidateRequiresUserListForUserListPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.Policy = "user_list"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when user_list policy has an empty list")
	}
	cfg.Normalize.UserList = []string{"Cowboy Bebop"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config once list set, got: %v", err)
	}
}

func TestValidateRequiresMongoURIForMongoStore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.RootPromptText = "what is your favorite comfort show?"
	cfg.Store.Type = "mongo"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when mongo store has no URI")
	}
	cfg.Store.MongoURI = "mongodb://localhost:27017"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config once mongo_uri set, got: %v", err)
	}
}

func TestValidateRejectsOutOfRangeClusterThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Normalize.RootPromptText = "what is your favorite comfort show?"
	cfg.Cluster.MinScore = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for cluster.min_score outside [0,1]")
	}
}
