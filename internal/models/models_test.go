package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestBaseModelBeforeCreateKeepsExplicitID(t *testing.T) {
	base := BaseModel{ID: "pitch-42"}
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID != "pitch-42" {
		t.Fatalf("expected explicit id to be preserved, got %q", base.ID)
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"nda_request", func() *BaseModel {
			r := &NDARequest{}
			return &r.BaseModel
		}},
		{"nda", func() *BaseModel {
			n := &NDA{}
			return &n.BaseModel
		}},
		{"pitch", func() *BaseModel {
			p := &Pitch{}
			return &p.BaseModel
		}},
		{"notification", func() *BaseModel {
			n := &Notification{}
			return &n.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			if err := base.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if base.ID == "" {
				t.Fatal("expected id to be generated")
			}
		})
	}
}

func TestTableNames(t *testing.T) {
	if got := (NDARequest{}).TableName(); got != "nda_requests" {
		t.Fatalf("unexpected table %q", got)
	}
	if got := (NDA{}).TableName(); got != "ndas" {
		t.Fatalf("unexpected table %q", got)
	}
	if got := (NDAAuditLog{}).TableName(); got != "nda_audit_log" {
		t.Fatalf("unexpected table %q", got)
	}
	if got := (PitchAccess{}).TableName(); got != "pitch_access" {
		t.Fatalf("unexpected table %q", got)
	}
}

func TestRequestActiveKey(t *testing.T) {
	key := RequestActiveKey("pitch-1", "investor-9")
	if key == nil || *key != "pitch-1:investor-9" {
		t.Fatalf("unexpected key %v", key)
	}
}
