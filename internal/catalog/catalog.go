// Package catalog はクライアントへ公開するツールカタログを提供する。
package catalog

import "github.com/brbranch/gamelink_mcp/internal/model"

// toolEntry はカタログの1エントリ（名前と説明のみ、スキーマは共通）
type toolEntry struct {
	name        string
	description string
}

// カタログの定義
// このリストはコマンド実行側のディスパッチと対応している必要がある
var toolEntries = []toolEntry{
	{"ping", "Simple connectivity test (returns pong)"},
	{"get_actors_in_level", "List all actors in the current level"},
	{"find_actors_by_name", "Find actors by display label pattern"},
	{"spawn_actor", "Spawn an actor of a given type"},
	{"delete_actor", "Delete an actor by name"},
	{"set_actor_transform", "Set transform for an actor"},
	{"get_actor_properties", "Get properties for an actor"},
	{"set_actor_property", "Set a property on an actor"},
	{"spawn_blueprint_actor", "Spawn an actor from a Blueprint"},
	{"focus_viewport", "Focus viewport on a target"},
	{"take_screenshot", "Trigger editor screenshot"},
	{"create_blueprint", "Create a new Blueprint asset"},
	{"add_component_to_blueprint", "Add a component to a Blueprint"},
	{"set_component_property", "Set a component property on a Blueprint"},
	{"set_physics_properties", "Configure physics properties"},
	{"compile_blueprint", "Compile a Blueprint"},
	{"set_blueprint_property", "Set a Blueprint property"},
	{"set_static_mesh_properties", "Configure static mesh properties"},
	{"set_pawn_properties", "Configure pawn properties"},
	{"connect_blueprint_nodes", "Connect two Blueprint graph nodes"},
	{"add_blueprint_get_self_component_reference", "Add a get reference node to a component"},
	{"add_blueprint_self_reference", "Add a self reference node"},
	{"find_blueprint_nodes", "Find nodes in a Blueprint graph"},
	{"add_blueprint_event_node", "Add an event node to a Blueprint graph"},
	{"add_blueprint_input_action_node", "Add an input action node"},
	{"add_blueprint_function_node", "Add a function call node"},
	{"add_blueprint_get_component_node", "Add a get component node"},
	{"add_blueprint_variable", "Add a variable to a Blueprint"},
	{"create_input_mapping", "Create a project input mapping"},
	{"create_umg_widget_blueprint", "Create a UMG Widget Blueprint"},
	{"add_text_block_to_widget", "Add a TextBlock to a widget"},
	{"add_button_to_widget", "Add a Button to a widget"},
	{"bind_widget_event", "Bind a widget event"},
	{"set_text_block_binding", "Set a binding on a TextBlock widget"},
	{"add_widget_to_viewport", "Add a widget to the viewport"},
}

// Build はツールカタログを生成する
//
// 起動時に一度だけ呼び出し、結果は読み取り専用の値として全接続で共有する。
// スキーマは意図的に寛容（任意のオブジェクトを許可）で、引数の検証は
// コマンド実行側の責務
func Build() []model.Tool {
	tools := make([]model.Tool, len(toolEntries))
	for i, entry := range toolEntries {
		tools[i] = model.Tool{
			Name:        entry.name,
			Description: entry.description,
			InputSchema: model.PermissiveSchema(),
		}
	}
	return tools
}
