package integrationtests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tlxgo/internal/testutil"
)

func TestTemplate_RendersModelPaths(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<h1 title="${user.name}">${upper(user.name)}</h1><p>${user.age + 1}</p>`,
		testutil.ModelFile:    "user:\n  name: ada\n  age: 36\n",
	}
	result := testutil.RunIntegrationTest(t, files)

	testutil.AssertRendered(t, result, `<h1 title="ada">ADA</h1>`, `<p>37</p>`)
	testutil.AssertLogged(t, result, "Template resolved.")
}

func TestTemplate_SetsOverrideModel(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<p>${greeting}, ${user.name}</p>`,
		testutil.ModelFile:    "greeting: hello\nuser:\n  name: ada\n",
	}
	result := testutil.RunIntegrationTest(t, files, "user.name=grace")

	testutil.AssertRendered(t, result, `<p>hello, grace</p>`)
}

func TestTemplate_IterationModes(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<ul :foreach(tag,i)="${tags}"><li>${i}:${tag}</li></ul>` +
			`<ol :forkeys(k)="${scores}"><li>${k}</li></ol>` +
			`<ol :forvalues(v)="${scores}"><li>${v}</li></ol>`,
		testutil.ModelFile: "tags: [x, y]\nscores:\n  b: 2\n  a: 1\n",
	}
	result := testutil.RunIntegrationTest(t, files)

	testutil.AssertRendered(t, result,
		`<li>0:x</li><li>1:y</li>`,
		`<li>a</li><li>b</li>`,
		`<li>1</li><li>2</li>`,
	)
}

func TestTemplate_ConditionHidesElement(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<p :if="${show}">${msg}</p><i>${msg}</i>`,
	}
	result := testutil.RunIntegrationTest(t, files, "show=false", "msg=hi")

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "hidden")
	assert.Contains(t, result.Output, "${msg}", "a hidden element keeps its unresolved body")
	assert.Contains(t, result.Output, "<i>hi</i>")
}

func TestTemplate_FailedExpressionKeepsSource(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<p>${missing.value}</p><p>${1 + 1}</p>`,
	}
	result := testutil.RunIntegrationTest(t, files)

	testutil.AssertRendered(t, result, `<p>${missing.value}</p>`, `<p>2</p>`)
	testutil.AssertLogged(t, result, "Text interpolation failed.")
}

func TestTemplate_MissingTemplateFails(t *testing.T) {
	result := testutil.RunIntegrationTest(t, map[string]string{"other.html": "<p></p>"})

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to load template")
	assert.Empty(t, result.Output)
}

func TestTemplate_ComponentAttributesAreExtras(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<user-card name="${user.name}" admin><b>${name}</b><i :if="${admin}">admin</i></user-card>`,
		testutil.ModelFile:    "user:\n  name: ada\n",
	}
	result := testutil.RunIntegrationTest(t, files)

	testutil.AssertRendered(t, result, `<user-card name="ada" admin="">`, `<b>ada</b>`, `<i :if="true">admin</i>`)
}

func TestTemplate_PlainScriptAttributesResolve(t *testing.T) {
	files := map[string]string{
		testutil.TemplateFile: `<script src="${base}/app.js"></script>`,
	}
	result := testutil.RunIntegrationTest(t, files, "base=/static")

	testutil.AssertRendered(t, result, `<script src="/static/app.js"></script>`)
}
