/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

var (
	reBoneyardRegion = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineEnding     = regexp.MustCompile(`\r\n|\r`)
	reBlankLine      = regexp.MustCompile(`(?m)^[\t ]+$`)
)

// Normalize prepares raw script text for scanning:
//   - \r\n and \r become \n
//   - boneyard regions (/* ... */) are emptied but keep their newlines so line numbers stay exact
//   - lines holding only spaces or tabs become empty
func Normalize(text string) string {
	text = reLineEnding.ReplaceAllString(text, "\n")
	text = reBoneyardRegion.ReplaceAllStringFunc(text, func(comment string) string {
		return strings.Repeat("\n", strings.Count(comment, "\n"))
	})
	return reBlankLine.ReplaceAllString(text, "")
}
