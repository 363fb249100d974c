package httpadapter

import (
	"context"
	"encoding/json"
	"testing"

	"tgminer/internal/app/boxgame"
	"tgminer/internal/app/spinwheel"
	"tgminer/internal/app/store"
	"tgminer/internal/app/uistate"
	"tgminer/internal/domain/game"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const stateSchema = `{
  "type": "object",
  "required": ["user", "version", "mining", "spin_wheel", "box", "loader", "music"],
  "properties": {
    "user": {
      "type": "object",
      "required": ["id", "coins", "tempCoins", "isMining", "miningRate"],
      "properties": {
        "isMining": {"type": "boolean"},
        "tempCoins": {"type": "number"}
      }
    },
    "version": {"type": "integer", "minimum": 1},
    "mining": {"type": "boolean"},
    "spin_wheel": {
      "type": "object",
      "required": ["phase", "can_spin", "is_spinning"],
      "properties": {
        "phase": {"enum": ["ineligible", "eligible", "spinning"]}
      }
    },
    "box": {
      "type": "object",
      "required": ["can_play", "loading", "round"],
      "properties": {
        "round": {
          "type": "object",
          "required": ["cards", "opened_count", "selected_reward_ids", "can_claim", "game_finished"]
        }
      }
    },
    "loader": {
      "type": "object",
      "required": ["visible", "progress", "message"],
      "properties": {"progress": {"type": "integer", "minimum": 0, "maximum": 100}}
    },
    "music": {"type": "object", "required": ["enabled", "playing", "available"]}
  }
}`

const errorSchema = `{
  "type": "object",
  "required": ["error"],
  "additionalProperties": false,
  "properties": {
    "error": {
      "type": "object",
      "required": ["code", "message"],
      "properties": {
        "code": {"type": "string", "pattern": "^[a-z_]+$"},
        "message": {"type": "string"}
      }
    }
  }
}`

func compileSchema(t *testing.T, name, src string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.CompileString(name, src)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateBody(t *testing.T, s *jsonschema.Schema, body []byte) {
	t.Helper()
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate %s: %v", body, err)
	}
}

func TestStateResponseContract(t *testing.T) {
	st := store.New()
	st.Replace(game.UserSnapshot{ID: 1, Coins: 10, TempCoins: 2.5, MiningRate: 0.1, IsMining: true})
	loader := uistate.NewLoader()
	loader.SetProgress(40, "Authenticating")
	h := Handler{
		Store:     st,
		SpinWheel: &fakeSpin{state: spinwheel.State{Phase: spinwheel.PhaseEligible, CanSpin: true}},
		Box: &fakeBox{state: boxgame.State{
			CanPlay: true,
			Round:   game.NewBoxRound([]game.BoxReward{{ID: 10}, {ID: 20}}),
		}},
		Loader: loader,
		Music:  uistate.NewMusic(),
	}
	ctx := &app.RequestContext{}
	h.state(context.Background(), ctx)

	validateBody(t, compileSchema(t, "state.schema.json", stateSchema), ctx.Response.Body())
}

func TestErrorResponseContract(t *testing.T) {
	s := compileSchema(t, "error.schema.json", errorSchema)
	for _, code := range []string{"not_configured", "bad_request"} {
		ctx := &app.RequestContext{}
		writeErrorBody(ctx, 400, code, "nope")
		validateBody(t, s, ctx.Response.Body())
	}

	ctx := &app.RequestContext{}
	Handler{}.boxOpen(context.Background(), ctx)
	validateBody(t, s, ctx.Response.Body())
}
