// Copyright 2025 The NLP Odyssey Authors
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

package story

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   \n\t "))
	assert.Equal(t, 5, WordCount("once upon a time there"))
	assert.Equal(t, 2, WordCount("  hello\n world  "))
}

func TestReadingTimeMinutes(t *testing.T) {
	assert.Equal(t, 0, ReadingTimeMinutes(""))
	assert.Equal(t, 1, ReadingTimeMinutes("a short sentence"))

	long := strings.Repeat("word ", 400)
	assert.Equal(t, 3, ReadingTimeMinutes(long))
}

func TestDraftNormalize(t *testing.T) {
	d := Draft{
		Title: "The Brave Knight",
		Text:  strings.Repeat("brave ", 300),
	}
	d.Normalize()
	assert.Equal(t, 300, d.WordCount)
	assert.Equal(t, 2, d.EstimatedReadingTimeMinutes)

	// Model-provided metadata is kept as-is.
	d2 := Draft{Text: "tiny", WordCount: 42, EstimatedReadingTimeMinutes: 7}
	d2.Normalize()
	assert.Equal(t, 42, d2.WordCount)
	assert.Equal(t, 7, d2.EstimatedReadingTimeMinutes)
}

func TestFeedbackApproved(t *testing.T) {
	assert.True(t, Feedback{Status: FeedbackApproved}.Approved())
	assert.False(t, Feedback{Status: FeedbackNeedsRevision, Feedback: "pacing"}.Approved())
}
