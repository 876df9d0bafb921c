/*
Copyright 2026 The Prefab Server Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package resource

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pathEcho(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, name, " ", r.URL.Path)
	})
}

func get(h http.Handler, path string) (int, string) {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(w.Body)
	return w.Code, string(body)
}

func Example() {
	root := New()
	api := New()
	root.PutChild("api", api)
	api.PutChild("v1", pathEcho("v1"))

	fmt.Println(root.Children())
	fmt.Println(get(root, "/api/v1/things"))

	// Output:
	// [api]
	// 200 v1 /things
}

func TestRouting(t *testing.T) {
	root := New()
	root.PutChild("prefab", pathEcho("prefab"))

	for _, tc := range []struct {
		path string
		code int
		body string
	}{
		{"/prefab", http.StatusOK, "prefab /"},
		{"/prefab/", http.StatusOK, "prefab /"},
		{"/prefab/x/y", http.StatusOK, "prefab /x/y"},
		{"/", http.StatusNotFound, ""},
		{"/other", http.StatusNotFound, ""},
		{"/prefabx", http.StatusNotFound, ""},
	} {
		code, body := get(root, tc.path)
		assert.Equal(t, tc.code, code, tc.path)
		if tc.body != "" {
			assert.Equal(t, tc.body, body, tc.path)
		}
	}
}

func TestPutChildKeepsSiblings(t *testing.T) {
	root := New()
	root.PutChild("a", pathEcho("a"))
	root.PutChild("b", pathEcho("b"))
	root.PutChild("a", pathEcho("a2"))

	assert.Equal(t, []string{"a", "b"}, root.Children())

	_, body := get(root, "/a")
	assert.Equal(t, "a2 /", body)
	_, body = get(root, "/b")
	assert.Equal(t, "b /", body)

	_, ok := root.Child("c")
	assert.False(t, ok)
}

func TestInvalidSegment(t *testing.T) {
	root := New()
	assert.Panics(t, func() { root.PutChild("", pathEcho("x")) })
	assert.Panics(t, func() { root.PutChild("a/b", pathEcho("x")) })
}
