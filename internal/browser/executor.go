package browser

import (
	"context"
	"fmt"

	"browserTasks/internal/runner"
	"browserTasks/internal/script"
)

// Perform выполняет одно действие и возвращает его исход со снимком
// страницы. Неизвестный тип действия сюда не доходит — он отклоняется
// при валидации сценария, но на всякий случай проверяется и здесь.
func (b *PlaywrightBrowser) Perform(ctx context.Context, action script.BrowserAction) (*runner.ActionResult, error) {
	result := &runner.ActionResult{}

	switch action.Type {
	case script.ActionNavigate:
		if err := b.navigate(ctx, action.URL); err != nil {
			return nil, err
		}
		result.Outcome = fmt.Sprintf("переход на %s", action.URL)

	case script.ActionClick:
		if err := b.click(ctx, action.Selector); err != nil {
			return nil, err
		}
		result.Outcome = fmt.Sprintf("клик по %s", action.Selector)

	case script.ActionTypeText:
		if err := b.typeText(ctx, action.Selector, action.Value); err != nil {
			return nil, err
		}
		result.Outcome = fmt.Sprintf("ввод в %s", action.Selector)

	case script.ActionExtract:
		text, err := b.extract(ctx, action.Selector)
		if err != nil {
			return nil, err
		}
		result.Outcome = text

	case script.ActionScreenshot:
		ref, err := b.screenshot(ctx, action.Selector)
		if err != nil {
			return nil, err
		}
		result.ScreenshotRef = ref
		result.Outcome = ref

	default:
		return nil, fmt.Errorf("неизвестный тип действия %q", action.Type)
	}

	snap, err := b.Snapshot(ctx)
	if err == nil {
		result.Snapshot = snap
	}
	return result, nil
}

// Snapshot возвращает текущее состояние страницы: URL, заголовок и карту
// видимых элементов селектор -> текст. Селекторы строятся по id, атрибуту
// name или позиции тега — в том же порядке предпочтения, что генерирует
// большинство авторов сценариев.
func (b *PlaywrightBrowser) Snapshot(ctx context.Context) (*runner.PageSnapshot, error) {
	page := b.getPage()
	if page == nil {
		return nil, fmt.Errorf("браузер не запущен")
	}

	snap := &runner.PageSnapshot{
		URL:      page.URL(),
		Elements: make(map[string]string),
	}

	if title, err := page.Title(); err == nil {
		snap.Title = title
	}

	result, err := page.Evaluate(elementExtractionJS)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения элементов: %w", err)
	}

	items, ok := result.([]any)
	if !ok {
		return snap, nil
	}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		selector, _ := entry["selector"].(string)
		text, _ := entry["text"].(string)
		if selector != "" {
			snap.Elements[selector] = text
		}
	}

	return snap, nil
}

// elementExtractionJS собирает видимые элементы страницы с устойчивыми
// селекторами: #id, [name=...], иначе tag:nth-of-type.
const elementExtractionJS = `() => {
	const results = [];
	const seen = new Set();

	const buildSelector = (el) => {
		if (el.id) return '#' + CSS.escape(el.id);
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		const tag = el.tagName.toLowerCase();
		const parent = el.parentElement;
		if (!parent) return tag;
		const siblings = Array.from(parent.children).filter(c => c.tagName === el.tagName);
		if (siblings.length === 1) return tag;
		return tag + ':nth-of-type(' + (siblings.indexOf(el) + 1) + ')';
	};

	const isVisible = (el) => {
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 && rect.height === 0) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden';
	};

	const elements = document.querySelectorAll(
		'a, button, input, select, textarea, form, h1, h2, h3, [id], [role], label, p, span, div'
	);
	for (const el of elements) {
		if (results.length >= 300) break;
		if (!isVisible(el)) continue;
		const selector = buildSelector(el);
		if (seen.has(selector)) continue;
		seen.add(selector);
		const text = (el.innerText || el.value || '').trim().slice(0, 500);
		results.push({ selector, text });
	}
	return results;
}`
