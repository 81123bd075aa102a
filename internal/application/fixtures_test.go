package application_test

import (
	"time"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

const (
	testProjectID = 278964
	testMRIID     = 33824
	testVersionID = 127919672
	baseSHA       = "1f0fa02de1f6b913d674a8be10899fb8540237a9"
	headSHA       = "b6d6f6fd17b52b8cf4e961218c572805e9aa7463"
	startSHA      = "8b9ee1c9e6c5dbbc5e2b1dd8e1ba0b2e8a7b9c01"
)

func testMR() model.Issuable {
	return model.Issuable{
		ID:           35284557,
		IID:          testMRIID,
		ProjectID:    testProjectID,
		Title:        "Test MR",
		SHA:          headSHA,
		SourceBranch: "test-branch",
		Kind:         model.IssuableKindMergeRequest,
	}
}

func testIssue() model.Issuable {
	return model.Issuable{
		ID:        8,
		IID:       219925,
		ProjectID: testProjectID,
		Title:     "Test issue",
		Kind:      model.IssuableKindIssue,
	}
}

// testVersion has one added, one deleted, one renamed, one modified and two
// image files.
func testVersion() model.MrVersion {
	return model.MrVersion{
		ID:             testVersionID,
		BaseCommitSHA:  baseSHA,
		HeadCommitSHA:  headSHA,
		StartCommitSHA: startSHA,
		Diffs: []model.DiffFile{
			{OldPath: ".deleted.yml", NewPath: ".deleted.yml", DeletedFile: true},
			{OldPath: "README.md", NewPath: "README1.md", RenamedFile: true},
			{OldPath: "new_file.ts", NewPath: "new_file.ts", NewFile: true},
			{OldPath: "src/test.js", NewPath: "src/test.js"},
			{OldPath: "src/assets/insert-multi-file-snippet.gif", NewPath: "src/assets/insert-multi-file-snippet.gif", NewFile: true},
			{OldPath: "Screenshot.png", NewPath: "Screenshot.png"},
		},
	}
}

// newMRFake returns a client serving testMR with testVersion.
func newMRFake() *fakeGitLab {
	mr := testMR()
	is := testIssue()
	v := testVersion()
	return &fakeGitLab{
		mergeRequests: map[int]*model.Issuable{testMRIID: &mr},
		issues:        map[int]*model.Issuable{is.IID: &is},
		versions:      []model.MrVersion{{ID: testVersionID}, {ID: testVersionID - 1}},
		versionDetail: map[int]*model.MrVersion{testVersionID: &v},
		files: map[string]string{
			baseSHA + ":src/test.js":  "Old Version",
			headSHA + ":src/test.js":  "New Version",
			baseSHA + ":README.md":    "Old Version",
			headSHA + ":README1.md":   "New Version",
			baseSHA + ":.deleted.yml": "Old Version",
			headSHA + ":new_file.ts":  "New Version",
		},
		notes: map[int]*model.Note{},
	}
}

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC)
}

func textPosition(path string, newLine int) *model.Position {
	return &model.Position{
		PositionType: model.PositionTypeText,
		BaseSHA:      baseSHA,
		StartSHA:     startSHA,
		HeadSHA:      headSHA,
		OldPath:      path,
		NewPath:      path,
		NewLine:      newLine,
	}
}

func diffDiscussion(id string, noteID int, path string, line int, created time.Time) model.Discussion {
	return model.Discussion{
		ID: id,
		Notes: []model.Note{{
			ID: noteID, Body: "diff note " + id, Author: "reviewer", CreatedAt: created,
			Resolvable: true, Position: textPosition(path, line),
		}},
	}
}

func generalDiscussion(id string, noteID int, created time.Time) model.Discussion {
	return model.Discussion{
		ID:             id,
		IndividualNote: true,
		Notes:          []model.Note{{ID: noteID, Body: "general " + id, Author: "reviewer", CreatedAt: created}},
	}
}
