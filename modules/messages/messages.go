// Package messages sends messages between roles and matches the
// events that they produce.
package messages

import (
	"strings"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/geo"
)

// Media a message can have.
var Media = []string{"text", "image", "audio"}

var locationParams = map[string]*core.ParamSpec{
	"latitude":      {Type: "number"},
	"longitude":     {Type: "number"},
	"accuracy":      {Type: "number"},
	"from_relay_id": {Type: "string"},
}

func withLocation(ps map[string]*core.ParamSpec) map[string]*core.ParamSpec {
	for k, v := range locationParams {
		ps[k] = v
	}
	return ps
}

var eventParams = map[string]*core.ParamSpec{
	"from":     {Type: "reference", Collection: "roles", Help: "The sender, or anyone."},
	"to":       {Type: "reference", Collection: "roles", Help: "The recipient, or anyone."},
	"geofence": {Type: "reference", Collection: "geofences", Help: "Where the message must have been sent from."},
}

var Module = &core.Module{
	Name: "messages",
	Resources: map[string]*core.Resource{
		"message": {
			Actions: map[string]*core.ActionDef{
				"send_text": {
					Help: "Send a text message from one role to another.",
					Params: withLocation(map[string]*core.ParamSpec{
						"from_role_name": {Type: "reference", Collection: "roles", Required: true},
						"to_role_name":   {Type: "reference", Collection: "roles", Required: true},
						"content":        {Type: "string", Required: true},
					}),
					GetOps: sendText,
				},
				"send_message": {
					Help: "Send a pre-defined message.",
					Params: map[string]*core.ParamSpec{
						"message_name": {Type: "reference", Collection: "messages", Required: true},
						"to_role_name": {Type: "reference", Collection: "roles", Help: "Required unless the message has a recipient."},
					},
					GetOps: sendMessage,
				},
				"send_custom_message": {
					Help: "Send a text or media message from one role to another.",
					Params: withLocation(map[string]*core.ParamSpec{
						"from_role_name": {Type: "reference", Collection: "roles", Required: true},
						"to_role_name":   {Type: "reference", Collection: "roles", Required: true},
						"medium":         {Type: "enum", Required: true, Help: "text, image or audio."},
						"content":        {Type: "string", Required: true},
					}),
					GetOps: sendCustomMessage,
				},
			},
			Events: map[string]*core.EventDef{
				"text_received": {
					Help:       "Occurs when a text message has been received.",
					SpecParams: withContains(eventParams),
					MatchEvent: matcher("text"),
				},
				"image_received": {
					Help:       "Occurs when an image message has been received.",
					SpecParams: eventParams,
					MatchEvent: matcher("image"),
				},
				"message_received": {
					Help: "Occurs when a message of any medium has been received.",
					SpecParams: withContains(map[string]*core.ParamSpec{
						"medium": {Type: "enum", Help: "text, image or audio; or any."},
					}),
					MatchEvent: matcher(""),
				},
			},
			Conditions: map[string]*core.ConditionDef{
				"message_contains": {
					Help: "Passes if the triggering message contains the part, ignoring case.",
					Properties: map[string]*core.ParamSpec{
						"part": {Type: "string", Required: true},
					},
					Eval: messageContains,
				},
			},
		},
	},
}

func withContains(ps map[string]*core.ParamSpec) map[string]*core.ParamSpec {
	acc := map[string]*core.ParamSpec{
		"contains": {Type: "string", Help: "Text the content must contain, ignoring case."},
	}
	for k, v := range eventParams {
		acc[k] = v
	}
	for k, v := range ps {
		acc[k] = v
	}
	return acc
}

func nonzero(ps core.Params, p string) interface{} {
	if f, have := ps.Float(p); have && f != 0 {
		return f
	}
	return nil
}

func location(ps core.Params) map[string]interface{} {
	return map[string]interface{}{
		"latitude":  nonzero(ps, "latitude"),
		"longitude": nonzero(ps, "longitude"),
		"accuracy":  nonzero(ps, "accuracy"),
	}
}

func messageOps(ps core.Params, ac *core.ActionContext, event, medium, content string, replyNeeded bool) []core.ResultOp {
	from, to := ps.String("from_role_name"), ps.String("to_role_name")
	loc := location(ps)
	return []core.ResultOp{
		&core.CreateMessage{
			SuppressRelayID: ps.String("from_relay_id"),
			Fields: core.Values{
				"sentByRoleName":    from,
				"sentToRoleName":    to,
				"createdAt":         core.ISO(ac.EvaluateAt),
				"medium":            medium,
				"content":           content,
				"sentFromLatitude":  loc["latitude"],
				"sentFromLongitude": loc["longitude"],
				"sentFromAccuracy":  loc["accuracy"],
				"isReplyNeeded":     replyNeeded,
				"isInGallery":       medium == "image",
			},
		},
		&core.EmitEvent{Event: core.Params{
			"type": event,
			"message": map[string]interface{}{
				"from":    from,
				"to":      to,
				"medium":  medium,
				"content": content,
			},
			"location": loc,
		}},
	}
}

func sendText(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	from := ac.ScriptContent.Role(ps.String("from_role_name"))
	if from == nil {
		return []core.ResultOp{core.Errorf("Could not find role named %q.", ps.String("from_role_name"))}, nil
	}
	content := core.TemplateText(ac.EvalContext, ps["content"], ac.Timezone, ac.TriggeringRoleName)
	return messageOps(ps, ac, "text_received", "text", content, from.Type == "traveler"), nil
}

func sendCustomMessage(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	from := ac.ScriptContent.Role(ps.String("from_role_name"))
	to := ac.ScriptContent.Role(ps.String("to_role_name"))
	if from == nil || to == nil {
		return []core.ResultOp{core.Errorf("Could not find roles %q and %q.",
			ps.String("from_role_name"), ps.String("to_role_name"))}, nil
	}
	medium := ps.String("medium")
	if !validMedium(medium) {
		return []core.ResultOp{core.Errorf("Invalid message medium %q.", medium)}, nil
	}
	content := core.TemplateText(ac.EvalContext, ps["content"], ac.Timezone, ac.TriggeringRoleName)
	// Messages from non-actors to actors need replies.
	return messageOps(ps, ac, "message_received", medium, content, to.Actor && !from.Actor), nil
}

func validMedium(medium string) bool {
	for _, m := range Media {
		if m == medium {
			return true
		}
	}
	return false
}

func sendMessage(ps core.Params, ac *core.ActionContext) ([]core.ResultOp, error) {
	name := ps.String("message_name")
	msg := ac.ScriptContent.Message(name)
	if msg == nil {
		return []core.ResultOp{core.Errorf("Could not find message named %q.", name)}, nil
	}
	to := ps.String("to_role_name")
	if to == "" {
		to = msg.To
	}
	if to == "" {
		return []core.ResultOp{core.Errorf("Message %q has no recipient.", name)}, nil
	}
	var readAt interface{}
	if msg.Read {
		readAt = core.ISO(ac.EvaluateAt)
	}
	return []core.ResultOp{&core.CreateMessage{
		Fields: core.Values{
			"sentByRoleName": msg.From,
			"sentToRoleName": to,
			"createdAt":      core.ISO(ac.EvaluateAt),
			"readAt":         readAt,
			"name":           name,
			"medium":         msg.Medium,
			"content":        core.TemplateText(ac.EvalContext, msg.Content, ac.Timezone, ac.TriggeringRoleName),
		},
	}}, nil
}

// MaxAccuracy caps the grace a message's reported accuracy adds to a
// geofence's radius.  It is looser than geo.MaxAccuracy.
const MaxAccuracy = 15

// matcher builds a MatchEvent for message events.  Unset spec fields
// match anything.  A non-empty medium is required of every event.
func matcher(medium string) core.MatchEventFunc {
	return func(spec, event core.Params, ac *core.ActionContext) (bool, error) {
		msg := event.Map("message")
		if medium != "" && msg.String("medium") != medium {
			return false, nil
		}
		for _, p := range []string{"from", "to", "medium"} {
			if want := spec.String(p); want != "" && want != msg.String(p) {
				return false, nil
			}
		}
		if part := spec.String("contains"); part != "" {
			if !strings.Contains(strings.ToLower(msg.String("content")), strings.ToLower(part)) {
				return false, nil
			}
		}
		if name := spec.String("geofence"); name != "" {
			g := ac.ScriptContent.Geofence(name)
			if g == nil {
				return false, nil
			}
			p := geo.PointFrom(event.Map("location"), "latitude", "longitude", "accuracy")
			return geo.IsWithinGeofence(ac.ScriptContent, geo.WaypointOptions(ac.EvalContext), p, g, MaxAccuracy), nil
		}
		return true, nil
	}
}

func messageContains(ps core.Params, ac *core.ActionContext) (bool, error) {
	content, _ := ac.EvalContext.Get("event.message.content")
	s, ok := content.(string)
	if !ok {
		return false, nil
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(ps.String("part"))), nil
}
