// Package i18n holds the user-facing strings of the front end in each
// supported locale.
package i18n

import "github.com/manash/cyberedit/pkg/models"

type Key string

const (
	TrialUsesRemaining Key = "trialUsesRemaining"
	Licensed           Key = "licensed"
	History            Key = "history"
	UploadSection      Key = "uploadSection"
	PromptSection      Key = "promptSection"
	SinglePrompt       Key = "singlePrompt"
	BatchPrompt        Key = "batchPrompt"
	Resolution         Key = "resolution"
	Generate           Key = "generate"
	Generating         Key = "generating"
	Results            Key = "results"
	Before             Key = "before"
	After              Key = "after"
	Delete             Key = "delete"
	ClearAll           Key = "clearAll"
	NoHistory          Key = "noHistory"
	ConfirmClear       Key = "confirmClear"
	TrialExpired       Key = "trialExpired"
	EnterLicense       Key = "enterLicense"
	LicenseKey         Key = "licenseKey"
	Activate           Key = "activate"
	Cancel             Key = "cancel"
	InvalidLicense     Key = "invalidLicense"
	Activated          Key = "activated"
	Saved              Key = "saved"
	NoImageUploaded    Key = "noImageUploaded"
	MissingInput       Key = "missingInput"
)

var catalogs = map[models.Locale]map[Key]string{
	models.LocaleEN: {
		TrialUsesRemaining: "Free trial uses remaining",
		Licensed:           "Licensed",
		History:            "History",
		UploadSection:      "Upload Image",
		PromptSection:      "Enter Your Prompt",
		SinglePrompt:       "Single Prompt",
		BatchPrompt:        "Batch Prompt",
		Resolution:         "Choose Output Quality",
		Generate:           "Generate",
		Generating:         "Generating...",
		Results:            "Results",
		Before:             "Before",
		After:              "After",
		Delete:             "Delete",
		ClearAll:           "Clear All",
		NoHistory:          "No history yet. Start creating!",
		ConfirmClear:       "Are you sure you want to clear all history? This cannot be undone.",
		TrialExpired:       "Trial expired. Enter your License Key to continue.",
		EnterLicense:       "Enter License Key",
		LicenseKey:         "License Key",
		Activate:           "Activate",
		Cancel:             "Cancel",
		InvalidLicense:     "Invalid License Key. Please contact the author.",
		Activated:          "License activated successfully!",
		Saved:              "Saved",
		NoImageUploaded:    "No image uploaded.",
		MissingInput:       "Please upload an image and enter a prompt.",
	},
	models.LocaleVI: {
		TrialUsesRemaining: "Lượt dùng thử còn lại",
		Licensed:           "Đã kích hoạt",
		History:            "Lịch sử",
		UploadSection:      "Tải ảnh lên",
		PromptSection:      "Nhập mô tả của bạn",
		SinglePrompt:       "Prompt đơn",
		BatchPrompt:        "Prompt hàng loạt",
		Resolution:         "Chọn chất lượng ảnh đầu ra",
		Generate:           "Tạo ảnh",
		Generating:         "Đang tạo...",
		Results:            "Kết quả",
		Before:             "Trước",
		After:              "Sau",
		Delete:             "Xóa",
		ClearAll:           "Xóa tất cả",
		NoHistory:          "Chưa có lịch sử. Bắt đầu sáng tạo nào!",
		ConfirmClear:       "Bạn có chắc muốn xóa toàn bộ lịch sử? Thao tác này không thể hoàn tác.",
		TrialExpired:       "Dùng thử đã hết. Nhập License Key để tiếp tục.",
		EnterLicense:       "Nhập License Key",
		LicenseKey:         "License Key",
		Activate:           "Kích hoạt",
		Cancel:             "Hủy",
		InvalidLicense:     "License Key không hợp lệ. Vui lòng liên hệ tác giả.",
		Activated:          "Kích hoạt license thành công!",
		Saved:              "Đã lưu",
		NoImageUploaded:    "Chưa tải ảnh lên.",
		MissingInput:       "Vui lòng tải ảnh lên và nhập mô tả.",
	},
}

// T returns the string for key in locale, falling back to English and
// then to the key itself.
func T(locale models.Locale, key Key) string {
	if s, ok := catalogs[locale][key]; ok {
		return s
	}
	if s, ok := catalogs[models.LocaleEN][key]; ok {
		return s
	}
	return string(key)
}

// Keys lists every key of the English catalog.
func Keys() []Key {
	keys := make([]Key, 0, len(catalogs[models.LocaleEN]))
	for k := range catalogs[models.LocaleEN] {
		keys = append(keys, k)
	}
	return keys
}
