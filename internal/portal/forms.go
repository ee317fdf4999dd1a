package portal

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/FutilityDesigns/Glyph-Reader/internal/prefs"
)

// The settings page is rendered from the preference spec table, so adding a
// key there grows the form automatically. Spell bindings render as dropdowns
// populated from the catalogue; int fields get +/- adjusters.

var settingsTemplate = template.Must(template.New("settings").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Glyph Reader Configuration</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 20px auto; padding: 0 12px; }
.field { margin: 10px 0; padding: 10px; border: 1px solid #ddd; border-radius: 5px; }
.field label { display: block; margin-bottom: 5px; font-weight: bold; }
.adjust { display: flex; align-items: center; gap: 10px; }
.adjust button { width: 40px; height: 40px; font-size: 20px; cursor: pointer; color: white; border: none; border-radius: 5px; }
.adjust .minus { background: #f44336; }
.adjust .plus { background: #4CAF50; }
input[type=number], input[type=text], select { height: 36px; font-size: 16px; border: 2px solid #ccc; border-radius: 5px; }
</style>
<script>
function adjust(id, step) {
  var input = document.getElementById(id);
  var val = parseInt(input.value) || 0;
  input.value = val + step;
}
</script>
</head>
<body>
<h1>Glyph Reader Settings</h1>
<form method="POST" action="/settings">
{{range .Fields}}
<div class="field">
<label for="{{.Key}}">{{.Label}}</label>
{{if .IsSpell}}
<select name="{{.Key}}" id="{{.Key}}">
<option value=""{{if eq .Value ""}} selected{{end}}>(none)</option>
{{$f := .}}{{range $.Spells}}<option value="{{.}}"{{if eq . $f.Value}} selected{{end}}>{{.}}</option>
{{end}}</select>
{{else if .IsBool}}
<input type="checkbox" name="{{.Key}}" id="{{.Key}}"{{if .Checked}} checked{{end}}>
{{else if .IsInt}}
<div class="adjust">
<button type="button" class="minus" onclick="adjust('{{.Key}}', -{{.Step}})">-</button>
<input type="number" name="{{.Key}}" id="{{.Key}}" value="{{.Value}}" step="{{.Step}}">
<button type="button" class="plus" onclick="adjust('{{.Key}}', {{.Step}})">+</button>
</div>
{{else}}
<input type="text" name="{{.Key}}" id="{{.Key}}" value="{{.Value}}">
{{end}}
</div>
{{end}}
<button type="submit" style="height:44px;font-size:18px;">Save</button>
</form>

{{if .Customs}}
<h2>Rename Custom Spells</h2>
<form method="POST" action="/spells/rename">
{{range $i, $name := .Customs}}
<div class="field">
<label>{{$name}}</label>
<input type="hidden" name="old{{$i}}" value="{{$name}}">
<input type="text" name="new{{$i}}" value="{{$name}}">
</div>
{{end}}
<button type="submit" style="height:44px;font-size:18px;">Rename</button>
</form>
{{end}}
</body>
</html>
`))

type formField struct {
	Key     string
	Label   string
	Value   string
	Step    int
	IsInt   bool
	IsBool  bool
	IsSpell bool
	Checked bool
}

// spellBindingKeys render as catalogue dropdowns rather than free text.
var spellBindingKeys = map[prefs.Key]bool{
	prefs.NightlightOnSpell:    true,
	prefs.NightlightOffSpell:   true,
	prefs.NightlightRaiseSpell: true,
	prefs.NightlightLowerSpell: true,
}

func (s *Server) renderSettingsForm(w http.ResponseWriter) {
	cat := s.catalog()

	var fields []formField
	for _, spec := range prefs.Specs() {
		f := formField{
			Key:   string(spec.Key),
			Label: spec.Label,
			Step:  spec.Step,
		}
		switch spec.Type {
		case prefs.TypeBool:
			f.IsBool = true
			f.Checked = s.store.Bool(spec.Key)
		case prefs.TypeInt:
			f.IsInt = true
			f.Value = strconv.Itoa(s.store.Int(spec.Key))
		case prefs.TypeString:
			f.Value = s.store.Str(spec.Key)
			f.IsSpell = spellBindingKeys[spec.Key]
		}
		fields = append(fields, f)
	}

	data := struct {
		Fields  []formField
		Spells  []string
		Customs []string
	}{fields, cat.Names(), cat.CustomNames()}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := settingsTemplate.Execute(w, data); err != nil {
		http.Error(w, "Failed to render settings", http.StatusInternalServerError)
	}
}
