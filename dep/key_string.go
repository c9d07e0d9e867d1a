// Copyright 2024 The pkgsolve Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dep

// String returns the name of the attribute key, for diagnostics.
func (k AttrKey) String() string {
	switch k {
	case Optional:
		return "Optional"
	case Editable:
		return "Editable"
	case Extra:
		return "Extra"
	case Environment:
		return "Environment"
	case KnownAs:
		return "KnownAs"
	default:
		return "AttrKey(unknown)"
	}
}
