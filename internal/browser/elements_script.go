package browser

// snapshotScript walks document.body in pre-order and emits one record per
// element. Parents always precede children, so "parent" is the index of an
// earlier record. XPaths count same-tag siblings the way dom.FromHTML does.
func snapshotScript() string {
	return `(() => {
		const skipped = new Set(['script', 'style', 'noscript', 'template', 'head', 'meta', 'link', 'title', 'svg']);
		const records = [];

		const labels = {};
		document.querySelectorAll('label[for]').forEach((l) => {
			labels[l.getAttribute('for')] = (l.textContent || '').trim();
		});

		const labelFor = (el) => {
			if (el.id && labels[el.id]) {
				return labels[el.id];
			}
			const parent = el.closest('label');
			return parent ? (parent.textContent || '').trim() : '';
		};

		const cssSelector = (el, tag) => {
			if (el.id && !/[\s.#:\[\]]/.test(el.id)) {
				return '#' + el.id;
			}
			const name = el.getAttribute('name');
			if (name && ['input', 'select', 'textarea', 'button'].includes(tag)) {
				return tag + '[name="' + name + '"]';
			}
			return '';
		};

		const clickable = (el) => {
			if (typeof el.onclick === 'function' || el.hasAttribute('onclick')) {
				return true;
			}
			try {
				return window.getComputedStyle(el).cursor === 'pointer';
			} catch (e) {
				return false;
			}
		};

		const visit = (el, parent, xpath) => {
			const tag = el.tagName.toLowerCase();
			const index = records.length;

			const attributes = {};
			for (const a of el.attributes) {
				attributes[a.name.toLowerCase()] = a.value;
			}

			const formField = ['input', 'select', 'textarea'].includes(tag);

			records.push({
				tag: tag,
				parent: parent,
				attributes: attributes,
				text: (el.innerText !== undefined ? el.innerText : el.textContent || '').replace(/\s+/g, ' ').trim(),
				label: formField ? labelFor(el) : '',
				checked: !!el.checked,
				disabled: !!el.disabled,
				clickable: clickable(el),
				xpath: xpath,
				selector: cssSelector(el, tag),
			});

			const counts = {};
			for (const child of el.children) {
				const childTag = child.tagName.toLowerCase();
				if (skipped.has(childTag)) {
					continue;
				}
				counts[childTag] = (counts[childTag] || 0) + 1;
				visit(child, index, xpath + '/' + childTag + '[' + counts[childTag] + ']');
			}
		};

		const root = document.body || document.documentElement;
		if (!root) {
			return records;
		}

		const path = [];
		for (let cur = root; cur && cur.nodeType === 1; cur = cur.parentElement) {
			let i = 1;
			for (let s = cur.previousElementSibling; s; s = s.previousElementSibling) {
				if (s.tagName === cur.tagName) {
					i++;
				}
			}
			path.unshift(cur.tagName.toLowerCase() + '[' + i + ']');
		}

		visit(root, -1, '/' + path.join('/'));

		return records;
	})()`
}

const clearLocalStorageScript = `(() => { try { window.localStorage.clear(); return true; } catch (e) { return false; } })()`

const clearSessionStorageScript = `(() => { try { window.sessionStorage.clear(); return true; } catch (e) { return false; } })()`

// jsClickScript clicks the element at the given XPath directly in the page,
// bypassing actionability checks.
const jsClickScript = `(xpath) => {
	const el = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) {
		return {success: false, error: 'element not found'};
	}
	el.scrollIntoView({behavior: 'instant', block: 'center'});
	try {
		el.click();
		return {success: true};
	} catch (e) {
		return {success: false, error: e.message};
	}
}`
